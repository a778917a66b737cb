package handlers

import (
	"log/slog"
	"net/http"

	"github.com/unemi/sportsmap/libs/httpx"
	"github.com/unemi/sportsmap/services/reservation-service/internal/sessions"
)

type Routes struct {
	Auth         *AuthHandler
	Availability *AvailabilityHandler
	Admin        *AdminHandler
	Verifier     *sessions.Verifier
	Logger       *slog.Logger
	// LoginLimiter throttles login attempts; nil disables it.
	LoginLimiter httpx.Middleware
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// Register mounts the API on mux. Everything except login needs a session;
// admin routes also need a staff user.
func (rt Routes) Register(mux *http.ServeMux) {
	authed := func(h http.HandlerFunc) http.Handler {
		return rt.Verifier.Require(rt.Logger, h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return rt.Verifier.Require(rt.Logger, sessions.RequireAdmin(h))
	}

	mux.Handle("POST /api/v1/auth/login", httpx.Chain(http.HandlerFunc(rt.Auth.Login), rt.LoginLimiter))
	mux.Handle("GET /api/v1/auth/me", authed(rt.Auth.Me))
	mux.Handle("POST /api/v1/auth/logout", authed(rt.Auth.Logout))

	a := rt.Availability
	mux.Handle("GET /api/v1/facilities", authed(a.Facilities))
	mux.Handle("GET /api/v1/facilities/{code}/slots", authed(a.Slots))
	mux.Handle("GET /api/v1/facilities/{code}/day-status", authed(a.DayStatus))
	mux.Handle("GET /api/v1/facilities/{code}/calendar/3day", authed(a.ThreeDay))
	mux.Handle("GET /api/v1/facilities/{code}/calendar/week", authed(a.Week))
	mux.Handle("GET /api/v1/facilities/{code}/calendar/month", authed(a.Month))
	mux.Handle("GET /api/v1/map/status", authed(a.MapStatus))
	mux.Handle("GET /api/v1/reservations/{id}", authed(a.Reservation))

	mux.Handle("POST /api/v1/admin/reservations/upload", admin(rt.Admin.Upload))
	mux.Handle("POST /api/v1/admin/refresh", admin(rt.Admin.Refresh))
	mux.Handle("GET /api/v1/admin/overlaps", admin(rt.Admin.Overlaps))

	if rt.Metrics != nil {
		mux.Handle("GET /metrics", rt.Metrics)
	}
}
