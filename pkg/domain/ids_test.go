package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "recensement/pkg/domain-errors"
)

// TestParseID_Invariants validates the parsing invariant:
// "IDs must be positive decimal integers"
func TestParseID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseZoneID("north")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects zero and negative values", func(t *testing.T) {
		for _, input := range []string{"0", "-1", "-9223372036854775808"} {
			_, err := ParseRecordID(input)
			require.Error(t, err, "input %q", input)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})

	t.Run("rejects overflow", func(t *testing.T) {
		_, err := ParseCenterID("9223372036854775808")
		require.Error(t, err)
	})

	t.Run("accepts valid ID with surrounding spaces", func(t *testing.T) {
		id, err := ParseRecordID(" 42 ")
		require.NoError(t, err)
		assert.Equal(t, RecordID(42), id)
		assert.Equal(t, "42", id.String())
	})
}

func TestIsNil(t *testing.T) {
	assert.True(t, UserID(0).IsNil())
	assert.True(t, ZoneID(0).IsNil())
	assert.True(t, CenterID(0).IsNil())
	assert.True(t, RecordID(0).IsNil())
	assert.False(t, ZoneID(7).IsNil())
}

// TestParseID_SecurityInvariants validates that trust-boundary parsing rejects
// injection-shaped input.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"sql injection", "1; DROP TABLE users;--"},
		{"null byte suffix", "1\x00"},
		{"hex literal", "0x10"},
		{"float", "1.5"},
		{"plus sign with spaces inside", "1 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUserID(tt.input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}
