// Package service manages the user directory: admins create, deactivate and
// delete accounts; any authenticated caller may list them.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"recensement/internal/models"
	"recensement/internal/platform/metrics"
	"recensement/internal/policy"
	id "recensement/pkg/domain"
	dErrors "recensement/pkg/domain-errors"
	"recensement/pkg/platform/sentinel"
	"recensement/pkg/requestcontext"
)

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	ExecuteUser(ctx context.Context, userID id.UserID, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error)
	DeleteUser(ctx context.Context, userID id.UserID) error
}

type Service struct {
	users   UserStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(users UserStore, opts ...Option) *Service {
	s := &Service{users: users}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateUser registers an account. An empty role defaults to agent. The
// password arrives already hashed; the service never sees plaintext.
func (s *Service) CreateUser(ctx context.Context, caller models.Identity, username, phone string, role id.Role, passwordHash string) (*models.User, error) {
	if err := authorize(caller, policy.ActionUserCreate); err != nil {
		return nil, err
	}

	username = strings.TrimSpace(username)
	if username == "" || passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "username and password are required")
	}
	if role == "" {
		role = id.DefaultRole
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "role must be admin, supervisor or agent")
	}

	user, err := models.NewUser(username, phone, role, passwordHash, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "username already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.logEvent(ctx, "user_created",
		"user_id", user.ID.String(),
		"role", user.Role.String(),
		"actor_id", caller.ID.String(),
	)
	if s.metrics != nil {
		s.metrics.IncrementUsersCreated()
	}
	return user, nil
}

// ListUsers returns every user, newest first.
func (s *Service) ListUsers(ctx context.Context, caller models.Identity) ([]*models.User, error) {
	if err := authorize(caller, policy.ActionUserList); err != nil {
		return nil, err
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, caller models.Identity, userID id.UserID) (*models.User, error) {
	if err := authorize(caller, policy.ActionUserList); err != nil {
		return nil, err
	}
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, translateNotFound(err, "failed to load user")
	}
	return user, nil
}

// DeactivateUser disables login for the account. Existing records keep their
// agent and supervisor references.
func (s *Service) DeactivateUser(ctx context.Context, caller models.Identity, userID id.UserID) (*models.User, error) {
	if err := authorize(caller, policy.ActionUserDeactivate); err != nil {
		return nil, err
	}
	user, err := s.users.ExecuteUser(ctx, userID, nil, func(u *models.User) {
		u.Deactivate()
	})
	if err != nil {
		return nil, translateNotFound(err, "failed to deactivate user")
	}
	s.logEvent(ctx, "user_deactivated",
		"user_id", userID.String(),
		"actor_id", caller.ID.String(),
	)
	return user, nil
}

// DeleteUser removes the account. Records it submitted or decided remain, with
// the reference cleared.
func (s *Service) DeleteUser(ctx context.Context, caller models.Identity, userID id.UserID) error {
	if err := authorize(caller, policy.ActionUserDelete); err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return translateNotFound(err, "failed to delete user")
	}
	s.logEvent(ctx, "user_deleted",
		"user_id", userID.String(),
		"actor_id", caller.ID.String(),
	)
	return nil
}

// EnsureAdmin creates an admin account with the given username if no user has
// it yet. It runs outside any request and therefore skips the policy check.
// Returns true when a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, passwordHash string) (bool, error) {
	username = strings.TrimSpace(username)
	if _, err := s.users.FindUserByUsername(ctx, username); err == nil {
		return false, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up admin")
	}

	user, err := models.NewUser(username, "", id.RoleAdmin, passwordHash, requestcontext.Now(ctx))
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeValidation, "invalid bootstrap admin")
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create admin")
	}
	s.logEvent(ctx, "admin_bootstrapped", "user_id", user.ID.String())
	if s.metrics != nil {
		s.metrics.IncrementUsersCreated()
	}
	return true, nil
}

func authorize(caller models.Identity, action policy.Action) error {
	if err := caller.Validate(); err != nil {
		return err
	}
	return policy.Authorize(caller.Role, action)
}

func translateNotFound(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) logEvent(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event)
	s.logger.InfoContext(ctx, event, args...)
}
