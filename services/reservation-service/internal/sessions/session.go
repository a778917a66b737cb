// Package sessions carries the caller's credentials as an explicit value.
// A Session is either anonymous or authenticated with an upstream token; it
// is passed to whatever needs to call upstream on the caller's behalf.
package sessions

import (
	"context"
	"errors"
	"strings"

	"github.com/unemi/sportsmap/services/reservation-service/internal/upstream"
)

var ErrNoSession = errors.New("no session")

type State int

const (
	Unauthenticated State = iota
	Authenticated
)

type Session struct {
	State State
	Token string
	User  upstream.User
}

func Anonymous() Session { return Session{} }

func NewAuthenticated(token string, user upstream.User) Session {
	return Session{State: Authenticated, Token: token, User: user}
}

func (s Session) IsAuthenticated() bool { return s.State == Authenticated && s.Token != "" }

func (s Session) IsAdmin() bool { return s.IsAuthenticated() && s.User.IsStaff }

// AuthorizationHeader is the upstream header value, empty when anonymous.
func (s Session) AuthorizationHeader() string {
	if !s.IsAuthenticated() {
		return ""
	}
	return "Token " + s.Token
}

// TokenFromHeader extracts the token of a "Token <t>" or "Bearer <t>"
// Authorization header.
func TokenFromHeader(header string) (string, bool) {
	header = strings.TrimSpace(header)
	for _, scheme := range []string{"Token ", "Bearer "} {
		if len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
			token := strings.TrimSpace(header[len(scheme):])
			return token, token != ""
		}
	}
	return "", false
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the request's session, or Anonymous when none was set.
func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(ctxKey{}).(Session); ok {
		return s
	}
	return Anonymous()
}
