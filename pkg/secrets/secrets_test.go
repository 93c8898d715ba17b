package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "recensement/pkg/domain-errors"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)

	assert.NoError(t, Verify("s3cret!", hash))

	err = Verify("wrong", hash)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestHashRejectsBadInput(t *testing.T) {
	_, err := Hash("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = Hash(strings.Repeat("a", 80))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestBcryptVerifier(t *testing.T) {
	hash, err := Hash("pw")
	require.NoError(t, err)

	v := Bcrypt{}
	assert.True(t, v.VerifyPassword("pw", hash))
	assert.False(t, v.VerifyPassword("nope", hash))
	assert.False(t, v.VerifyPassword("pw", "not-a-bcrypt-hash"))
}
