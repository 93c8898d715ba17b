package jwttoken

import (
	"recensement/internal/models"
	authmw "recensement/pkg/platform/middleware/auth"
)

// JWTServiceAdapter exposes JWTService as the auth middleware's validator.
type JWTServiceAdapter struct {
	service *JWTService
}

var _ authmw.TokenValidator = (*JWTServiceAdapter)(nil)

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (models.Identity, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return models.Identity{}, err
	}
	return claims.Identity()
}
