package domain

import (
	"strings"

	dErrors "recensement/pkg/domain-errors"
)

// Role is the closed set of caller roles.
// Invariant: the value must be one of admin, supervisor or agent.
//
// Usage: construct via ParseRole at trust boundaries; direct casting bypasses
// validation.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleAgent      Role = "agent"
)

// DefaultRole is assigned to users created without an explicit role.
const DefaultRole = RoleAgent

// roleAliases maps accepted spellings to canonical roles. Historic data uses
// the French "superviseur".
var roleAliases = map[string]Role{
	"admin":       RoleAdmin,
	"supervisor":  RoleSupervisor,
	"superviseur": RoleSupervisor,
	"agent":       RoleAgent,
}

// ParseRole constructs a Role from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r, ok := roleAliases[s]
	if !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

// IsValid reports whether the role is one of the canonical values.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleAgent:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// AllRoles returns every canonical role.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleSupervisor, RoleAgent}
}
