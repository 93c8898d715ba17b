package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"recensement/internal/models"
	id "recensement/pkg/domain"
	dErrors "recensement/pkg/domain-errors"
)

// Claims represents the JWT claims for our access tokens
type Claims struct {
	UserID   int64  `json:"user_id"`
	Role     string `json:"role"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

func NewJWTService(signingKey string, issuer string, ttl time.Duration) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
		now:        time.Now,
	}
}

// GenerateAccessToken signs an HS256 token carrying the identity.
func (s *JWTService) GenerateAccessToken(ident models.Identity) (string, error) {
	now := s.now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   int64(ident.ID),
		Role:     ident.Role.String(),
		Username: ident.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// Identity converts validated claims back into a caller identity. Tokens with
// a missing user or an unknown role are rejected.
func (c *Claims) Identity() (models.Identity, error) {
	role, err := id.ParseRole(c.Role)
	if err != nil {
		return models.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	ident := models.Identity{ID: id.UserID(c.UserID), Role: role, Username: c.Username}
	if err := ident.Validate(); err != nil {
		return models.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return ident, nil
}
