package httpx

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a fixed-window limiter kept in process memory. It is used
// when no Redis is configured, e.g. to throttle login attempts per client.
type RateLimiter struct {
	limit    int
	window   time.Duration
	now      func() time.Time
	key      KeyFunc
	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	count     int
	resetTime time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:    limit,
		window:   window,
		now:      time.Now,
		key:      ClientKey,
		visitors: map[string]*visitor{},
	}
}

// KeyBy replaces the function that identifies callers.
func (rl *RateLimiter) KeyBy(fn KeyFunc) *RateLimiter {
	if fn != nil {
		rl.key = fn
	}
	return rl
}

func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(rl.key(r)) {
				http.Error(w, "too many attempts, try again later", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v := rl.visitors[key]
	if v == nil || now.After(v.resetTime) {
		rl.sweep(now)
		rl.visitors[key] = &visitor{count: 1, resetTime: now.Add(rl.window)}
		return true
	}
	if v.count >= rl.limit {
		return false
	}
	v.count++
	return true
}

// sweep drops expired windows so the map does not grow with every client seen.
func (rl *RateLimiter) sweep(now time.Time) {
	for key, v := range rl.visitors {
		if now.After(v.resetTime) {
			delete(rl.visitors, key)
		}
	}
}

// KeyFunc identifies the caller a limit applies to.
type KeyFunc func(r *http.Request) string

// ClientKey identifies the caller by the remote host. Forwarding headers are
// ignored since any client can set them.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// ProxiedClientKey trusts X-Forwarded-For only on requests arriving from one
// of proxies. It walks the header from the right and returns the first hop
// that is not itself a trusted proxy.
func ProxiedClientKey(proxies []string) KeyFunc {
	trusted := map[string]struct{}{}
	for _, p := range proxies {
		if p = strings.TrimSpace(p); p != "" {
			trusted[p] = struct{}{}
		}
	}
	return func(r *http.Request) string {
		remote := ClientKey(r)
		if _, ok := trusted[remote]; !ok {
			return remote
		}
		hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if _, ok := trusted[hop]; !ok {
				return hop
			}
		}
		return remote
	}
}
