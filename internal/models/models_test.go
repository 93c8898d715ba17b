package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "recensement/pkg/domain"
	dErrors "recensement/pkg/domain-errors"
)

func intPtr(v int) *int { return &v }

func TestNewZoneStats_Progression(t *testing.T) {
	t.Run("nil objective yields nil progression", func(t *testing.T) {
		stats := NewZoneStats(1, 5, 3, nil)
		assert.Nil(t, stats.Objective)
		assert.Nil(t, stats.Progression)
	})

	t.Run("zero objective yields nil progression", func(t *testing.T) {
		stats := NewZoneStats(1, 5, 3, intPtr(0))
		require.NotNil(t, stats.Objective)
		assert.Equal(t, 0, *stats.Objective)
		assert.Nil(t, stats.Progression)
	})

	t.Run("positive objective yields ratio", func(t *testing.T) {
		stats := NewZoneStats(1, 7, 3, intPtr(10))
		require.NotNil(t, stats.Progression)
		assert.Equal(t, 0.3, *stats.Progression)
		assert.Equal(t, 7, stats.Total)
	})

	t.Run("progression may exceed one", func(t *testing.T) {
		stats := NewZoneStats(1, 6, 6, intPtr(4))
		require.NotNil(t, stats.Progression)
		assert.Equal(t, 1.5, *stats.Progression)
	})
}

func TestNewZone(t *testing.T) {
	now := time.Now()

	t.Run("trims name and copies objective", func(t *testing.T) {
		obj := 4
		z, err := NewZone("  North ", &obj, now)
		require.NoError(t, err)
		assert.Equal(t, "North", z.Name)
		obj = 9
		assert.Equal(t, 4, *z.Objective)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewZone(" ", nil, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects negative objective", func(t *testing.T) {
		_, err := NewZone("South", intPtr(-1), now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestNewCenter(t *testing.T) {
	_, err := NewCenter(0, "C1", "", time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewCenter(1, "", "", time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	c, err := NewCenter(1, "C1", " X-01 ", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "X-01", c.Code)
}

func TestNewUser(t *testing.T) {
	u, err := NewUser(" alice ", "", id.RoleAgent, "hash", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.True(t, u.IsActive)

	_, err = NewUser("bob", "", id.Role("root"), "hash", time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewUser("bob", "", id.RoleAgent, "", time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestRecordLifecycle(t *testing.T) {
	now := time.Now()

	t.Run("new record is pending with empty payload default", func(t *testing.T) {
		r, err := NewRecord(7, 1, 0, nil, now)
		require.NoError(t, err)
		assert.Equal(t, RecordStatusPending, r.Status)
		assert.True(t, r.SupervisorID.IsNil())
		assert.JSONEq(t, `{}`, string(r.Payload))
	})

	t.Run("rejects invalid payload", func(t *testing.T) {
		_, err := NewRecord(7, 0, 0, json.RawMessage(`{"name":`), now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("decision sets status and supervisor", func(t *testing.T) {
		r, err := NewRecord(7, 1, 0, json.RawMessage(`{"name":"X"}`), now)
		require.NoError(t, err)

		later := now.Add(time.Minute)
		require.NoError(t, r.CanDecide(false))
		r.ApplyDecision(DecisionApprove, 9, later)
		assert.Equal(t, RecordStatusApproved, r.Status)
		assert.Equal(t, id.UserID(9), r.SupervisorID)
		assert.Equal(t, later, r.UpdatedAt)
	})

	t.Run("re-decision allowed unless locked", func(t *testing.T) {
		r, err := NewRecord(7, 1, 0, nil, now)
		require.NoError(t, err)
		r.ApplyDecision(DecisionApprove, 9, now)

		assert.NoError(t, r.CanDecide(false))
		assert.True(t, dErrors.HasCode(r.CanDecide(true), dErrors.CodeInvariantViolation))
	})
}

func TestParseDecision(t *testing.T) {
	d, err := ParseDecision("reject")
	require.NoError(t, err)
	assert.Equal(t, RecordStatusRejected, d.Status())

	_, err = ParseDecision("maybe")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestIdentityValidate(t *testing.T) {
	assert.NoError(t, Identity{ID: 1, Role: id.RoleAgent}.Validate())
	assert.True(t, dErrors.HasCode(Identity{Role: id.RoleAgent}.Validate(), dErrors.CodeUnauthorized))
	assert.True(t, dErrors.HasCode(Identity{ID: 1, Role: "guest"}.Validate(), dErrors.CodeUnauthorized))
}
