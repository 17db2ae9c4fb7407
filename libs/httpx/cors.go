package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy configures WithCORS. An empty AllowedOrigins disables CORS headers.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

type compiledCORS struct {
	origins     []string
	wildcard    bool
	methods     string
	headers     string
	maxAge      string
	credentials bool
}

func (p CORSPolicy) compile() compiledCORS {
	c := compiledCORS{
		methods:     strings.Join(trimAll(p.AllowedMethods), ", "),
		headers:     strings.Join(trimAll(p.AllowedHeaders), ", "),
		credentials: p.AllowCredentials,
	}
	for _, o := range trimAll(p.AllowedOrigins) {
		if o == "*" {
			c.wildcard = true
			continue
		}
		c.origins = append(c.origins, o)
	}
	if secs := int(p.MaxAge / time.Second); secs > 0 {
		c.maxAge = strconv.Itoa(secs)
	}
	return c
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin. A
// wildcard echoes the origin when credentials are allowed.
func (c compiledCORS) allowOrigin(origin string) (string, bool) {
	for _, o := range c.origins {
		if strings.EqualFold(o, origin) {
			return origin, true
		}
	}
	if c.wildcard {
		if c.credentials {
			return origin, true
		}
		return "*", true
	}
	return "", false
}

func WithCORS(cfg CORSPolicy) Middleware {
	if len(trimAll(cfg.AllowedOrigins)) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	c := cfg.compile()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed, ok := "", false
			if origin != "" {
				allowed, ok = c.allowOrigin(origin)
			}
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowed)
			h.Add("Vary", "Origin")
			if c.credentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			h.Set("Access-Control-Expose-Headers", RequestIDHeader+", Retry-After")

			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				next.ServeHTTP(w, r)
				return
			}
			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")
			if c.methods != "" {
				h.Set("Access-Control-Allow-Methods", c.methods)
			}
			if c.headers != "" {
				h.Set("Access-Control-Allow-Headers", c.headers)
			}
			if c.maxAge != "" {
				h.Set("Access-Control-Max-Age", c.maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
