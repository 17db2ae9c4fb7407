package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter counts requests per client in a fixed window shared by every
// replica through Redis.
type RedisRateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// Returns {count, remaining window in ms}.
var redisWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

func NewRedisRateLimiter(rdb *redis.Client, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	if limit <= 0 {
		limit = 120
	}
	if window <= 0 {
		window = time.Minute
	}
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = "rl"
	}
	return &RedisRateLimiter{rdb: rdb, limit: limit, window: window, prefix: prefix}
}

// Middleware rejects with 429 and a Retry-After once a client exceeds the limit.
// When Redis is unreachable, failOpen lets the request through instead of
// answering 503.
func (rl *RedisRateLimiter) Middleware(logger *slog.Logger, failOpen bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count, ttl, err := rl.hit(r.Context(), rl.prefix+":"+clientKey(r))
			if err != nil {
				if logger != nil {
					logger.Warn("rate limiter unavailable", "err", err, "fail_open", failOpen)
				}
				if failOpen {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "rate limiter unavailable", http.StatusServiceUnavailable)
				return
			}
			remaining := int64(rl.limit) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if count > int64(rl.limit) {
				secs := int64((ttl + time.Second - 1) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RedisRateLimiter) hit(ctx context.Context, key string) (int64, time.Duration, error) {
	res, err := redisWindowScript.Run(ctx, rl.rdb, []string{key}, rl.window.Milliseconds()).Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("unexpected rate limit reply %v", res)
	}
	count, err := asInt64(res[0])
	if err != nil {
		return 0, 0, err
	}
	ms, err := asInt64(res[1])
	if err != nil {
		return 0, 0, err
	}
	if ms < 0 {
		ms = rl.window.Milliseconds()
	}
	return count, time.Duration(ms) * time.Millisecond, nil
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected redis reply type %T", v)
	}
}
