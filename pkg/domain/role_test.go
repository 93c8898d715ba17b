package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "recensement/pkg/domain-errors"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		want  Role
	}{
		{"admin", RoleAdmin},
		{"supervisor", RoleSupervisor},
		{"superviseur", RoleSupervisor},
		{" Agent ", RoleAgent},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.IsValid())
		})
	}

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := ParseRole("root")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects empty role", func(t *testing.T) {
		_, err := ParseRole("   ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("cast alias is not canonical", func(t *testing.T) {
		assert.False(t, Role("superviseur").IsValid())
	})
}
