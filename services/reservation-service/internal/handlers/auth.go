package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/unemi/sportsmap/libs/httpx"
	"github.com/unemi/sportsmap/services/reservation-service/internal/sessions"
	"github.com/unemi/sportsmap/services/reservation-service/internal/upstream"
)

// AuthAPI is the upstream token authentication.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (upstream.LoginResult, error)
	Logout(ctx context.Context, creds upstream.Credentials) error
}

type AuthHandler struct {
	api      AuthAPI
	verifier *sessions.Verifier
	logger   *slog.Logger
}

func NewAuthHandler(api AuthAPI, verifier *sessions.Verifier, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{api: api, verifier: verifier, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		http.Error(w, "username and password required", http.StatusBadRequest)
		return
	}

	res, err := h.api.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		var se *upstream.StatusError
		switch {
		case errors.Is(err, upstream.ErrUnauthorized):
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
		case errors.As(err, &se) && se.Status < 500:
			msg := se.Message
			if msg == "" {
				msg = "invalid credentials"
			}
			http.Error(w, msg, http.StatusUnauthorized)
		default:
			h.logger.Error("upstream login failed", "err", err)
			http.Error(w, "authentication unavailable", http.StatusBadGateway)
		}
		return
	}
	h.verifier.Remember(res.Token, res.User)
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := sessions.FromContext(r.Context())
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"user": sess.User})
}

// Logout always ends the local session; the upstream call is best effort.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := sessions.FromContext(r.Context())
	if err := h.api.Logout(r.Context(), sess); err != nil {
		h.logger.Warn("upstream logout failed", "err", err)
	}
	h.verifier.Forget(sess.Token)
	w.WriteHeader(http.StatusNoContent)
}
