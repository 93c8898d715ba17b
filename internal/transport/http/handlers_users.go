package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"recensement/internal/models"
	id "recensement/pkg/domain"
	dErrors "recensement/pkg/domain-errors"
	"recensement/pkg/platform/httputil"
	"recensement/pkg/secrets"
)

type UserService interface {
	CreateUser(ctx context.Context, caller models.Identity, username, phone string, role id.Role, passwordHash string) (*models.User, error)
	ListUsers(ctx context.Context, caller models.Identity) ([]*models.User, error)
	GetUser(ctx context.Context, caller models.Identity, userID id.UserID) (*models.User, error)
	DeactivateUser(ctx context.Context, caller models.Identity, userID id.UserID) (*models.User, error)
	DeleteUser(ctx context.Context, caller models.Identity, userID id.UserID) error
}

type UserHandler struct {
	users  UserService
	logger *slog.Logger
	hash   func(password string) (string, error)
}

func NewUserHandler(users UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger, hash: secrets.Hash}
}

func (h *UserHandler) Register(r chi.Router) {
	r.Get("/users", h.handleList)
	r.Post("/users", h.handleCreate)
	r.Get("/users/{id}", h.handleGet)
	r.Patch("/users/{id}/deactivate", h.handleDeactivate)
	r.Delete("/users/{id}", h.handleDelete)
}

func (h *UserHandler) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context(), caller(r))
	if err != nil {
		respondError(r.Context(), h.logger, w, "list users", err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *UserHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createUserRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		respondError(ctx, h.logger, w, "create user", err)
		return
	}

	var role id.Role
	if strings.TrimSpace(req.Role) != "" {
		parsed, err := id.ParseRole(req.Role)
		if err != nil {
			respondError(ctx, h.logger, w, "create user",
				dErrors.New(dErrors.CodeValidation, "role must be admin, supervisor or agent"))
			return
		}
		role = parsed
	}

	// The service rejects an empty hash; hashing an empty password would fail first.
	var hash string
	if req.Password != "" {
		var err error
		if hash, err = h.hash(req.Password); err != nil {
			respondError(ctx, h.logger, w, "create user", err)
			return
		}
	}

	u, err := h.users.CreateUser(ctx, caller(r), req.Username, req.Phone, role, hash)
	if err != nil {
		respondError(ctx, h.logger, w, "create user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, idResponse{ID: int64(u.ID)})
}

func (h *UserHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id", id.ParseUserID)
	if err != nil {
		respondError(r.Context(), h.logger, w, "get user", err)
		return
	}
	u, err := h.users.GetUser(r.Context(), caller(r), userID)
	if err != nil {
		respondError(r.Context(), h.logger, w, "get user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *UserHandler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id", id.ParseUserID)
	if err != nil {
		respondError(r.Context(), h.logger, w, "deactivate user", err)
		return
	}
	if _, err := h.users.DeactivateUser(r.Context(), caller(r), userID); err != nil {
		respondError(r.Context(), h.logger, w, "deactivate user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ok)
}

func (h *UserHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id", id.ParseUserID)
	if err != nil {
		respondError(r.Context(), h.logger, w, "delete user", err)
		return
	}
	if err := h.users.DeleteUser(r.Context(), caller(r), userID); err != nil {
		respondError(r.Context(), h.logger, w, "delete user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ok)
}
