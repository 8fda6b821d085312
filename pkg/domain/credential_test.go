package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "attestor/pkg/domain-errors"
)

func TestParseCredentialID(t *testing.T) {
	t.Run("accepts positive decimal", func(t *testing.T) {
		credentialID, err := ParseCredentialID("42")
		require.NoError(t, err)
		assert.Equal(t, CredentialID(42), credentialID)
		assert.Equal(t, "42", credentialID.String())
	})

	t.Run("rejects zero and garbage", func(t *testing.T) {
		for _, input := range []string{"0", "", "-1", "abc", "1.5"} {
			_, err := ParseCredentialID(input)
			assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest), "input %q", input)
		}
	})
}

func TestParseCredentialHash(t *testing.T) {
	valid := "0x" + strings.Repeat("ab", 32)

	t.Run("accepts well-formed hash", func(t *testing.T) {
		hash, err := ParseCredentialHash(valid)
		require.NoError(t, err)
		assert.False(t, hash.IsZero())
	})

	t.Run("rejects the all-zero hash", func(t *testing.T) {
		_, err := ParseCredentialHash(string(ZeroHash))
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidCredentialHash))
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		for _, input := range []string{"", "0x1234", strings.Repeat("ab", 33)} {
			_, err := ParseCredentialHash(input)
			assert.True(t, dErrors.Is(err, dErrors.CodeInvalidCredentialHash), "input %q", input)
		}
	})
}

func TestCredentialHashIsZero(t *testing.T) {
	assert.True(t, CredentialHash("").IsZero())
	assert.True(t, ZeroHash.IsZero())
	assert.False(t, CredentialHash("0x"+strings.Repeat("01", 32)).IsZero())
}

func TestParseLogicRef(t *testing.T) {
	t.Run("accepts any non-empty reference", func(t *testing.T) {
		ref, err := ParseLogicRef("  v2  ")
		require.NoError(t, err)
		assert.Equal(t, LogicRef("v2"), ref)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseLogicRef("   ")
		assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))
	})
}
