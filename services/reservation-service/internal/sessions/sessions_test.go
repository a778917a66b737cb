package sessions

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/unemi/sportsmap/services/reservation-service/internal/upstream"
)

type fakeResolver struct {
	users map[string]upstream.User
	err   error
	calls int
}

func (f *fakeResolver) Me(_ context.Context, token string) (upstream.User, error) {
	f.calls++
	if f.err != nil {
		return upstream.User{}, f.err
	}
	u, ok := f.users[token]
	if !ok {
		return upstream.User{}, upstream.ErrUnauthorized
	}
	return u, nil
}

func TestSessionValue(t *testing.T) {
	anon := Anonymous()
	if anon.IsAuthenticated() || anon.AuthorizationHeader() != "" {
		t.Fatalf("anonymous session should carry no credentials: %+v", anon)
	}
	s := NewAuthenticated("abc", upstream.User{Username: "ana", IsStaff: true})
	if !s.IsAdmin() || s.AuthorizationHeader() != "Token abc" {
		t.Fatalf("unexpected session %+v", s)
	}
	if FromContext(context.Background()).IsAuthenticated() {
		t.Fatal("empty context must be anonymous")
	}
	if got := FromContext(WithSession(context.Background(), s)); got.Token != "abc" {
		t.Fatalf("session not carried by context: %+v", got)
	}
}

func TestTokenFromHeader(t *testing.T) {
	cases := map[string]string{
		"Token abc":    "abc",
		"Bearer xyz ":  "xyz",
		"bearer lower": "lower",
		"Token ":       "",
		"Basic zzz":    "",
		"":             "",
	}
	for header, want := range cases {
		got, ok := TokenFromHeader(header)
		if got != want || ok != (want != "") {
			t.Fatalf("TokenFromHeader(%q) = %q,%v want %q", header, got, ok, want)
		}
	}
}

func TestVerifierCachesAndServesStale(t *testing.T) {
	res := &fakeResolver{users: map[string]upstream.User{"t1": {Username: "ana"}}}
	v := NewVerifier(res, time.Minute)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		s, err := v.Verify(context.Background(), "t1")
		if err != nil || s.User.Username != "ana" {
			t.Fatalf("verify: %+v %v", s, err)
		}
	}
	if res.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", res.calls)
	}

	now = now.Add(2 * time.Minute)
	res.err = errors.New("connection refused")
	s, err := v.Verify(context.Background(), "t1")
	if err != nil || !s.IsAuthenticated() {
		t.Fatalf("stale entry should be served when upstream is down: %+v %v", s, err)
	}
	if res.calls != 2 {
		t.Fatalf("expected a refresh attempt, got %d calls", res.calls)
	}

	if _, err := v.Verify(context.Background(), "unknown"); err == nil {
		t.Fatal("unknown token with upstream down must fail")
	}
}

func TestVerifierDropsRejectedTokens(t *testing.T) {
	res := &fakeResolver{users: map[string]upstream.User{}}
	v := NewVerifier(res, time.Minute)
	v.Remember("t1", upstream.User{Username: "ana"})
	v.Forget("t1")

	if _, err := v.Verify(context.Background(), "t1"); !errors.Is(err, upstream.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := v.Verify(context.Background(), ""); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestRequireAndRequireAdmin(t *testing.T) {
	res := &fakeResolver{users: map[string]upstream.User{
		"staff": {Username: "admin", IsStaff: true},
		"user":  {Username: "ana"},
	}}
	v := NewVerifier(res, time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(FromContext(r.Context()).User.Username))
	})
	h := v.Require(logger, RequireAdmin(ok))

	cases := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Token nope", http.StatusUnauthorized},
		{"Token user", http.StatusForbidden},
		{"Bearer staff", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%q: expected %d, got %d", tc.header, tc.want, rec.Code)
		}
	}

	res.err = errors.New("down")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token fresh")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 when upstream is down, got %d", rec.Code)
	}
}
