package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authService "recensement/internal/auth/service"
	"recensement/pkg/platform/httputil"
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (*authService.LoginResult, error)
}

type AuthHandler struct {
	auth   AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// RegisterPublic registers the routes reachable without a token.
func (h *AuthHandler) RegisterPublic(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Get("/auth/me", h.handleMe)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req loginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		respondError(ctx, h.logger, w, "login", err)
		return
	}
	res, err := h.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		respondError(ctx, h.logger, w, "login", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"access_token": res.AccessToken})
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, caller(r))
}
