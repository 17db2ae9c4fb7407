package locks

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLocker holds slot locks as Redis keys with a TTL so that a crashed writer
// cannot block a slot forever. Every holder owns a random token.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

var redisReleaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisLocker(rdb *redis.Client, prefix string, ttl, wait time.Duration) *RedisLocker {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "lock"
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if wait < 0 {
		wait = defaultWait
	}
	return &RedisLocker{rdb: rdb, prefix: prefix, ttl: ttl, wait: wait}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	fullKey := l.prefix + ":" + key
	token := uuid.NewString()
	err := retry(ctx, l.wait, func() (bool, error) {
		return l.rdb.SetNX(ctx, fullKey, token, l.ttl).Result()
	})
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		return redisReleaseScript.Run(ctx, l.rdb, []string{fullKey}, token).Err()
	}, nil
}

func ReadyCheck(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}

var _ Locker = (*RedisLocker)(nil)
