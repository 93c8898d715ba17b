// Package service resolves credentials into caller identities and issues
// access tokens for them.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"recensement/internal/models"
	"recensement/internal/platform/metrics"
	dErrors "recensement/pkg/domain-errors"
	"recensement/pkg/platform/sentinel"
	"recensement/pkg/requestcontext"
)

type UserLookup interface {
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// PasswordVerifier checks a plaintext password against a stored hash.
type PasswordVerifier interface {
	VerifyPassword(password, hash string) bool
}

// TokenIssuer mints an access token for an authenticated identity.
type TokenIssuer interface {
	GenerateAccessToken(ident models.Identity) (string, error)
}

// LoginResult is what a successful Login hands back to the transport.
type LoginResult struct {
	AccessToken string          `json:"access_token"`
	Identity    models.Identity `json:"user"`
}

type Service struct {
	users    UserLookup
	verifier PasswordVerifier
	tokens   TokenIssuer
	logger   *slog.Logger
	metrics  *metrics.Metrics
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

func New(users UserLookup, verifier PasswordVerifier, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		users:    users,
		verifier: verifier,
		tokens:   tokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var errInvalidCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")

// Authenticate turns a username plus an externally checked credential into an
// identity. Unknown users, inactive users and bad credentials fail with the
// same error so callers cannot tell them apart.
func (s *Service) Authenticate(ctx context.Context, username string, credentialValid bool) (models.Identity, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return models.Identity{}, err
	}
	if user == nil || !user.IsActive || !credentialValid {
		s.fail(ctx, "credentials_rejected")
		return models.Identity{}, errInvalidCredentials
	}
	return user.Identity(), nil
}

// Login verifies the password, resolves the identity and issues a token.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	valid := false
	if user != nil && user.IsActive && password != "" {
		valid = s.verifier.VerifyPassword(password, user.PasswordHash)
	}
	if user == nil || !user.IsActive || !valid {
		s.fail(ctx, "login_failed")
		return nil, errInvalidCredentials
	}

	ident := user.Identity()
	token, err := s.tokens.GenerateAccessToken(ident)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.logEvent(ctx, "login_succeeded",
		"user_id", ident.ID.String(),
		"role", ident.Role.String(),
	)
	return &LoginResult{AccessToken: token, Identity: ident}, nil
}

// lookup returns nil, nil for an unknown user.
func (s *Service) lookup(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	user, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	return user, nil
}

func (s *Service) fail(ctx context.Context, event string) {
	if s.metrics != nil {
		s.metrics.IncrementAuthFailures()
	}
	if s.logger != nil {
		s.logger.WarnContext(ctx, event,
			"event", event,
			"request_id", requestcontext.RequestID(ctx),
			"client_ip", requestcontext.ClientIP(ctx),
		)
	}
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
