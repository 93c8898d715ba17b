package models

import (
	"strings"
	"time"

	id "recensement/pkg/domain"
	dErrors "recensement/pkg/domain-errors"
)

// Zone is a geographic grouping with an optional completion objective.
//
// Invariants:
//   - Name is non-empty and unique (uniqueness enforced by the store)
//   - Objective, when set, is non-negative
//   - Deleting a zone deletes its centers and clears zone_id on records
type Zone struct {
	ID        id.ZoneID `json:"id"`
	Name      string    `json:"name"`
	Objective *int      `json:"objective"`
	CreatedAt time.Time `json:"created_at"`
}

func NewZone(name string, objective *int, now time.Time) (*Zone, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "zone name cannot be empty")
	}
	if len(name) > 120 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "zone name must be 120 characters or less")
	}
	if objective != nil && *objective < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "objective cannot be negative")
	}
	var obj *int
	if objective != nil {
		v := *objective
		obj = &v
	}
	return &Zone{Name: name, Objective: obj, CreatedAt: now}, nil
}

// Center is a collection site inside exactly one zone.
type Center struct {
	ID        id.CenterID `json:"id"`
	ZoneID    id.ZoneID   `json:"zone_id"`
	Code      string      `json:"code,omitempty"`
	Name      string      `json:"name"`
	CreatedAt time.Time   `json:"created_at"`
}

func NewCenter(zoneID id.ZoneID, name, code string, now time.Time) (*Center, error) {
	if zoneID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "center requires a zone")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "center name cannot be empty")
	}
	if len(name) > 200 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "center name must be 200 characters or less")
	}
	code = strings.TrimSpace(code)
	if len(code) > 30 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "center code must be 30 characters or less")
	}
	return &Center{ZoneID: zoneID, Name: name, Code: code, CreatedAt: now}, nil
}
