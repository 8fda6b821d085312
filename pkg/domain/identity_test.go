package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "attestor/pkg/domain-errors"
)

func TestParseIdentity(t *testing.T) {
	t.Run("accepts well-formed address", func(t *testing.T) {
		identity, err := ParseIdentity("0x00000000000000000000000000000000000000aB")
		require.NoError(t, err)
		assert.Equal(t, "0x00000000000000000000000000000000000000ab", identity.String())
	})

	t.Run("normalizes case", func(t *testing.T) {
		upper, err := ParseIdentity("0xABCDEF0123456789ABCDEF0123456789ABCDEF01")
		require.NoError(t, err)
		lower, err := ParseIdentity("0xabcdef0123456789abcdef0123456789abcdef01")
		require.NoError(t, err)
		assert.Equal(t, lower, upper)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		for _, input := range []string{
			"",
			"0x",
			"0x1234",
			"abcdef0123456789abcdef0123456789abcdef01",
			"0x" + strings.Repeat("g", 40),
			"0x" + strings.Repeat("a", 41),
		} {
			_, err := ParseIdentity(input)
			assert.True(t, dErrors.Is(err, dErrors.CodeInvalidAddress), "input %q", input)
		}
	})

	t.Run("rejects the zero address", func(t *testing.T) {
		_, err := ParseIdentity(string(ZeroIdentity))
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidAddress))
	})
}

func TestIdentityIsZero(t *testing.T) {
	assert.True(t, Identity("").IsZero())
	assert.True(t, ZeroIdentity.IsZero())

	identity, err := ParseIdentity("0x0000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.False(t, identity.IsZero())
}
