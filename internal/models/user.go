package models

import (
	"strings"
	"time"

	id "recensement/pkg/domain"
	dErrors "recensement/pkg/domain-errors"
)

// User is a field agent, supervisor or administrator.
//
// Invariants:
//   - Username is non-empty and unique (uniqueness enforced by the store)
//   - Role is one of the canonical roles
//   - PasswordHash is opaque to the core
type User struct {
	ID           id.UserID `json:"id"`
	Username     string    `json:"username"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	Role         id.Role   `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser validates and builds an active user. The ID is assigned by the store.
func NewUser(username, phone string, role id.Role, passwordHash string, now time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username cannot be empty")
	}
	if len(username) > 80 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username must be 80 characters or less")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash cannot be empty")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid role")
	}
	return &User{
		Username:     username,
		Phone:        strings.TrimSpace(phone),
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
	}, nil
}

// Deactivate marks the user inactive. Deactivating twice is a no-op.
func (u *User) Deactivate() {
	u.IsActive = false
}

// Identity returns the caller identity for this user.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Role: u.Role, Username: u.Username}
}
