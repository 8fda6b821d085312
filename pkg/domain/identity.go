package domain

import (
	"strings"

	dErrors "attestor/pkg/domain-errors"
)

// Identity is an opaque caller or account address: 0x followed by 40 hex
// characters, normalized to lower case at parse time.
//
// The zero value ("" or the all-zero address) is never a valid participant.
// Construct via ParseIdentity at trust boundaries; direct casting bypasses
// validation.
type Identity string

// ZeroIdentity is the all-zero address. Both it and the empty string are
// treated as "no identity".
const ZeroIdentity Identity = "0x0000000000000000000000000000000000000000"

const identityHexLen = 40

// ParseIdentity validates and normalizes an identity from external input.
//
// Errors: returns CodeInvalidAddress when the value is empty, malformed, or
// the all-zero address; no other errors are expected.
func ParseIdentity(s string) (Identity, error) {
	normalized, ok := normalizeHex(s, identityHexLen)
	if !ok {
		return "", dErrors.New(dErrors.CodeInvalidAddress, "identity must be 0x followed by 40 hex characters")
	}
	id := Identity(normalized)
	if id.IsZero() {
		return "", dErrors.New(dErrors.CodeInvalidAddress, "identity cannot be the zero address")
	}
	return id, nil
}

// IsZero reports whether the identity is absent or the all-zero address.
func (i Identity) IsZero() bool {
	return i == "" || i == ZeroIdentity
}

func (i Identity) String() string {
	return string(i)
}

// normalizeHex lowercases a 0x-prefixed hex string and checks its length and
// alphabet. Returns the normalized form and whether it was well formed.
func normalizeHex(s string, hexLen int) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) != hexLen+2 {
		return "", false
	}
	if s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return "", false
	}
	lower := strings.ToLower(s)
	for _, c := range lower[2:] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", false
		}
	}
	return lower, true
}
