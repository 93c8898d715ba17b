package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserLookup,PasswordVerifier,TokenIssuer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"recensement/internal/auth/service/mocks"
	jwttoken "recensement/internal/jwt_token"
	"recensement/internal/models"
	"recensement/internal/platform/metrics"
	"recensement/internal/storage/memory"
	id "recensement/pkg/domain"
	dErrors "recensement/pkg/domain-errors"
	"recensement/pkg/secrets"
)

type AuthServiceSuite struct {
	suite.Suite
	store   *memory.InMemory
	metrics *metrics.Metrics
	jwt     *jwttoken.JWTService
	service *Service
	ctx     context.Context
	active  *models.User
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.store = memory.NewInMemory()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.jwt = jwttoken.NewJWTService("test-signing-key", "recensement-test", time.Hour)
	s.service = New(s.store, secrets.Bcrypt{}, s.jwt, WithMetrics(s.metrics))
	s.ctx = context.Background()

	hash, err := secrets.Hash("s3cret!")
	s.Require().NoError(err)
	s.active = s.seed("awa", id.RoleSupervisor, hash)

	inactive := s.seed("ousmane", id.RoleAgent, hash)
	_, err = s.store.ExecuteUser(s.ctx, inactive.ID, nil, func(u *models.User) { u.Deactivate() })
	s.Require().NoError(err)
}

func (s *AuthServiceSuite) seed(username string, role id.Role, hash string) *models.User {
	u, err := models.NewUser(username, "", role, hash, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateUser(s.ctx, u))
	return u
}

func (s *AuthServiceSuite) TestAuthenticate() {
	s.Run("valid credential yields identity", func() {
		ident, err := s.service.Authenticate(s.ctx, "  awa ", true)
		s.Require().NoError(err)
		s.Equal(s.active.ID, ident.ID)
		s.Equal(id.RoleSupervisor, ident.Role)
		s.Equal("awa", ident.Username)
	})

	cases := []struct {
		name     string
		username string
		valid    bool
	}{
		{"unknown user", "nobody", true},
		{"inactive user", "ousmane", true},
		{"bad credential", "awa", false},
		{"empty username", "   ", true},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			ident, err := s.service.Authenticate(s.ctx, tc.username, tc.valid)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
			s.Equal("invalid credentials", err.Error())
			s.Equal(models.Identity{}, ident)
		})
	}
	s.Equal(float64(len(cases)), testutil.ToFloat64(s.metrics.AuthFailures))
}

func (s *AuthServiceSuite) TestLogin() {
	s.Run("issues a token carrying the identity", func() {
		res, err := s.service.Login(s.ctx, "awa", "s3cret!")
		s.Require().NoError(err)
		s.NotEmpty(res.AccessToken)
		s.Equal(s.active.ID, res.Identity.ID)

		claims, err := s.jwt.ValidateToken(res.AccessToken)
		s.Require().NoError(err)
		ident, err := claims.Identity()
		s.Require().NoError(err)
		s.Equal(res.Identity, ident)
	})

	s.Run("wrong password", func() {
		_, err := s.service.Login(s.ctx, "awa", "nope")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("inactive user with right password", func() {
		_, err := s.service.Login(s.ctx, "ousmane", "s3cret!")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown user", func() {
		_, err := s.service.Login(s.ctx, "ghost", "s3cret!")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestLoginWithMocks(t *testing.T) {
	ctx := context.Background()
	user := &models.User{ID: 7, Username: "fatou", Role: id.RoleAgent, PasswordHash: "h", IsActive: true}

	t.Run("lookup failure is internal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserLookup(ctrl)
		users.EXPECT().FindUserByUsername(gomock.Any(), "fatou").Return(nil, errors.New("db down"))

		svc := New(users, mocks.NewMockPasswordVerifier(ctrl), mocks.NewMockTokenIssuer(ctrl))
		_, err := svc.Login(ctx, "fatou", "pw")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})

	t.Run("verifier is skipped for an empty password", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserLookup(ctrl)
		users.EXPECT().FindUserByUsername(gomock.Any(), "fatou").Return(user, nil)

		svc := New(users, mocks.NewMockPasswordVerifier(ctrl), mocks.NewMockTokenIssuer(ctrl))
		_, err := svc.Login(ctx, "fatou", "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("issuer failure is internal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserLookup(ctrl)
		verifier := mocks.NewMockPasswordVerifier(ctrl)
		tokens := mocks.NewMockTokenIssuer(ctrl)
		users.EXPECT().FindUserByUsername(gomock.Any(), "fatou").Return(user, nil)
		verifier.EXPECT().VerifyPassword("pw", "h").Return(true)
		tokens.EXPECT().GenerateAccessToken(user.Identity()).Return("", errors.New("no key"))

		svc := New(users, verifier, tokens)
		_, err := svc.Login(ctx, "fatou", "pw")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
