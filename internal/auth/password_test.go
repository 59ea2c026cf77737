package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() KDFParams {
	return KDFParams{Workfactor: 4, Blocksize: 1, Parallel: 1, Length: 16}
}

func TestHashAndCheckPasswordRoundTrip(t *testing.T) {
	encoded, err := HashPassword("hunter2", testParams())
	require.NoError(t, err)

	assert.NoError(t, CheckPassword("hunter2", encoded))
	assert.ErrorIs(t, CheckPassword("wrong", encoded), ErrInvalidPassword)
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := HashPassword("", testParams())
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestHashPasswordProducesDistinctSalts(t *testing.T) {
	a, err := HashPassword("hunter2", testParams())
	require.NoError(t, err)
	b, err := HashPassword("hunter2", testParams())
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NoError(t, CheckPassword("hunter2", a))
	assert.NoError(t, CheckPassword("hunter2", b))
}

func TestCheckPasswordRejectsMalformedHash(t *testing.T) {
	err := CheckPassword("hunter2", "not-a-valid-hash")
	assert.Error(t, err)
}
