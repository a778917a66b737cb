package sessions

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/unemi/sportsmap/services/reservation-service/internal/upstream"
)

// Resolver looks a token up upstream.
type Resolver interface {
	Me(ctx context.Context, token string) (upstream.User, error)
}

type cached struct {
	user    upstream.User
	expires time.Time
}

// Verifier turns bearer tokens into sessions, caching upstream answers for a
// TTL. When upstream cannot be reached an expired entry is still served;
// a token upstream rejects is dropped immediately.
type Verifier struct {
	resolver Resolver
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]cached
}

func NewVerifier(resolver Resolver, ttl time.Duration) *Verifier {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Verifier{resolver: resolver, ttl: ttl, now: time.Now, entries: map[string]cached{}}
}

func (v *Verifier) Verify(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Anonymous(), ErrNoSession
	}
	v.mu.Lock()
	entry, ok := v.entries[token]
	v.mu.Unlock()
	now := v.now()
	if ok && now.Before(entry.expires) {
		return NewAuthenticated(token, entry.user), nil
	}

	user, err := v.resolver.Me(ctx, token)
	if err != nil {
		if errors.Is(err, upstream.ErrUnauthorized) {
			v.Forget(token)
			return Anonymous(), err
		}
		if ok {
			return NewAuthenticated(token, entry.user), nil
		}
		return Anonymous(), err
	}
	v.Remember(token, user)
	return NewAuthenticated(token, user), nil
}

// Remember caches a user freshly returned by login.
func (v *Verifier) Remember(token string, user upstream.User) {
	now := v.now()
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries[token] = cached{user: user, expires: now.Add(v.ttl)}
	for k, e := range v.entries {
		if now.Sub(e.expires) > 4*v.ttl {
			delete(v.entries, k)
		}
	}
}

func (v *Verifier) Forget(token string) {
	v.mu.Lock()
	delete(v.entries, token)
	v.mu.Unlock()
}

// Require rejects requests without a valid token and stores the session in
// the request context.
func (v *Verifier) Require(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := TokenFromHeader(r.Header.Get("Authorization"))
		if !ok {
			http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
			return
		}
		sess, err := v.Verify(r.Context(), token)
		if err != nil {
			if errors.Is(err, upstream.ErrUnauthorized) {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			logger.Error("session verification failed", "err", err)
			http.Error(w, "authentication unavailable", http.StatusBadGateway)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

// RequireAdmin must run inside Require.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).IsAdmin() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
