package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
	"attestor/pkg/testutil"
)

var jwtService = NewJWTService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)

const caller = id.Identity("0x00000000000000000000000000000000000000a1")

func Test_GenerateToken_RoundTrip(t *testing.T) {
	var token string
	testutil.Given(t, "a token signed for the caller", func(t *testing.T) {
		var err error
		token, err = jwtService.GenerateToken(caller, time.Hour)
		require.NoError(t, err)
		require.NotEmpty(t, token)
	})
	testutil.Then(t, "validation recovers the caller identity", func(t *testing.T) {
		got, err := jwtService.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, caller, got)
	})
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateToken(caller, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewJWTService("other-key", "test-issuer", "test-audience")
	token, err := other.GenerateToken(caller, time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_BadSubject(t *testing.T) {
	token, err := jwtService.GenerateToken(id.Identity("not-an-address"), time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}
