package models

import (
	"encoding/json"
	"time"

	id "recensement/pkg/domain"
	dErrors "recensement/pkg/domain-errors"
)

// RecordStatus is the lifecycle state of a record.
type RecordStatus string

const (
	RecordStatusPending  RecordStatus = "pending"
	RecordStatusApproved RecordStatus = "approved"
	RecordStatusRejected RecordStatus = "rejected"
)

func (s RecordStatus) IsValid() bool {
	switch s {
	case RecordStatusPending, RecordStatusApproved, RecordStatusRejected:
		return true
	}
	return false
}

// IsDecided reports whether a supervisor decision has been applied.
func (s RecordStatus) IsDecided() bool {
	return s == RecordStatusApproved || s == RecordStatusRejected
}

func (s RecordStatus) String() string {
	return string(s)
}

// Decision is a supervisor verdict on a record.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision constructs a Decision from external input.
func ParseDecision(s string) (Decision, error) {
	d := Decision(s)
	if _, ok := decisionStatus[d]; !ok {
		return "", dErrors.New(dErrors.CodeBadRequest, "decision must be approve or reject")
	}
	return d, nil
}

var decisionStatus = map[Decision]RecordStatus{
	DecisionApprove: RecordStatusApproved,
	DecisionReject:  RecordStatusRejected,
}

// Status returns the record status a decision leads to.
func (d Decision) Status() RecordStatus {
	return decisionStatus[d]
}

func (d Decision) String() string {
	return string(d)
}

// Record is one collected submission.
//
// Invariants:
//   - Status starts at pending
//   - SupervisorID is nil until a decision is applied, then equals the decider
//   - UpdatedAt moves on every mutation
//   - ZoneID, CenterID, AgentID and SupervisorID become nil when the referenced
//     row is deleted; records outlive what they reference
//
// Re-deciding an approved or rejected record is permitted and overwrites the
// previous decision (see records.lock_decided for the opt-in lock).
type Record struct {
	ID           id.RecordID     `json:"id"`
	ZoneID       id.ZoneID       `json:"zone_id"`
	CenterID     id.CenterID     `json:"center_id"`
	AgentID      id.UserID       `json:"agent_id"`
	SupervisorID id.UserID       `json:"supervisor_id"`
	Status       RecordStatus    `json:"status"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

var emptyPayload = json.RawMessage(`{}`)

// NewRecord builds a pending record. A nil or empty payload becomes {}.
func NewRecord(agentID id.UserID, zoneID id.ZoneID, centerID id.CenterID, payload json.RawMessage, now time.Time) (*Record, error) {
	if agentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "record requires an agent")
	}
	p, err := normalizePayload(payload)
	if err != nil {
		return nil, err
	}
	return &Record{
		ZoneID:    zoneID,
		CenterID:  centerID,
		AgentID:   agentID,
		Status:    RecordStatusPending,
		Payload:   p,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func normalizePayload(payload json.RawMessage) (json.RawMessage, error) {
	if len(payload) == 0 || string(payload) == "null" {
		return append(json.RawMessage(nil), emptyPayload...), nil
	}
	if !json.Valid(payload) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "payload must be valid JSON")
	}
	return append(json.RawMessage(nil), payload...), nil
}

// CanDecide checks whether a decision may be applied. lockDecided enables the
// terminal-state lock; without it every record can be (re)decided.
func (r *Record) CanDecide(lockDecided bool) error {
	if lockDecided && r.Status.IsDecided() {
		return dErrors.New(dErrors.CodeInvariantViolation, "record already decided")
	}
	return nil
}

// ApplyDecision sets the status and decider and refreshes UpdatedAt.
// Call CanDecide first to validate the transition.
func (r *Record) ApplyDecision(d Decision, supervisorID id.UserID, now time.Time) {
	r.Status = d.Status()
	r.SupervisorID = supervisorID
	r.UpdatedAt = now
}
