package models

import (
	id "recensement/pkg/domain"
	dErrors "recensement/pkg/domain-errors"
)

// Identity is the caller established by authentication. Every core operation
// receives it explicitly as its first argument after the context.
type Identity struct {
	ID       id.UserID `json:"id"`
	Role     id.Role   `json:"role"`
	Username string    `json:"username"`
}

// Validate rejects identities that could not have come from Authenticate.
func (i Identity) Validate() error {
	if i.ID.IsNil() || !i.Role.IsValid() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return nil
}
