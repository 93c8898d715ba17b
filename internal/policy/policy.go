// Package policy is the single authorization table. Every role check in the
// services goes through Authorize; adding a role or action touches only this
// file.
package policy

import (
	id "recensement/pkg/domain"
	dErrors "recensement/pkg/domain-errors"
)

// Action names an operation subject to authorization.
type Action string

const (
	ActionUserCreate     Action = "user.create"
	ActionUserDeactivate Action = "user.deactivate"
	ActionUserDelete     Action = "user.delete"
	ActionUserList       Action = "user.list"

	ActionZoneCreate   Action = "zone.create"
	ActionZoneDelete   Action = "zone.delete"
	ActionZoneList     Action = "zone.list"
	ActionZoneStats    Action = "zone.stats"
	ActionCenterCreate Action = "center.create"
	ActionCenterDelete Action = "center.delete"
	ActionCenterList   Action = "center.list"

	ActionRecordCreate Action = "record.create"
	ActionRecordList   Action = "record.list"
	ActionRecordRead   Action = "record.read"
	ActionRecordDecide Action = "record.decide"
)

type roleSet map[id.Role]bool

var (
	adminOnly     = roleSet{id.RoleAdmin: true}
	deciders      = roleSet{id.RoleAdmin: true, id.RoleSupervisor: true}
	authenticated = roleSet{id.RoleAdmin: true, id.RoleSupervisor: true, id.RoleAgent: true}
)

// table is closed: an action missing here is denied.
var table = map[Action]roleSet{
	ActionUserCreate:     adminOnly,
	ActionUserDeactivate: adminOnly,
	ActionUserDelete:     adminOnly,
	ActionUserList:       authenticated,

	ActionZoneCreate:   adminOnly,
	ActionZoneDelete:   adminOnly,
	ActionZoneList:     authenticated,
	ActionZoneStats:    authenticated,
	ActionCenterCreate: adminOnly,
	ActionCenterDelete: adminOnly,
	ActionCenterList:   authenticated,

	ActionRecordCreate: authenticated,
	ActionRecordList:   authenticated,
	ActionRecordRead:   authenticated,
	ActionRecordDecide: deciders,
}

// Allowed reports whether role may perform action.
func Allowed(role id.Role, action Action) bool {
	return table[action][role]
}

// Authorize returns a CodeForbidden error when role may not perform action.
// Unknown actions and unknown roles are denied.
func Authorize(role id.Role, action Action) error {
	if !Allowed(role, action) {
		return dErrors.New(dErrors.CodeForbidden, "role "+string(role)+" is not allowed to "+string(action))
	}
	return nil
}

// Known reports whether action belongs to the catalogue.
func Known(action Action) bool {
	_, ok := table[action]
	return ok
}

// Actions lists the catalogue.
func Actions() []Action {
	out := make([]Action, 0, len(table))
	for a := range table {
		out = append(out, a)
	}
	return out
}
