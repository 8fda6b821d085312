package domain

import (
	"strconv"
	"strings"

	dErrors "attestor/pkg/domain-errors"
)

// CredentialID is a monotonically increasing credential identifier assigned
// by the ledger. Identifiers start at 1 and are never reused or reassigned;
// 0 means "no credential".
type CredentialID uint64

// ParseCredentialID parses a decimal credential id from external input.
func ParseCredentialID(s string) (CredentialID, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || n == 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "credential id must be a positive integer")
	}
	return CredentialID(n), nil
}

// IsNil reports whether the id refers to no credential.
func (id CredentialID) IsNil() bool {
	return id == 0
}

func (id CredentialID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// CredentialHash is the content fingerprint bound to a credential at mint
// time: 0x followed by 64 hex characters. The all-zero hash is rejected at
// mint so an empty fingerprint can never be attested.
type CredentialHash string

// ZeroHash is the all-zero fingerprint, used as the neutral value returned
// for unknown credential ids.
const ZeroHash CredentialHash = "0x0000000000000000000000000000000000000000000000000000000000000000"

const hashHexLen = 64

// ParseCredentialHash validates and normalizes a content hash.
//
// Errors: returns CodeInvalidCredentialHash when the value is empty,
// malformed, or all zeroes.
func ParseCredentialHash(s string) (CredentialHash, error) {
	normalized, ok := normalizeHex(s, hashHexLen)
	if !ok {
		return "", dErrors.New(dErrors.CodeInvalidCredentialHash, "credential hash must be 0x followed by 64 hex characters")
	}
	h := CredentialHash(normalized)
	if h.IsZero() {
		return "", dErrors.New(dErrors.CodeInvalidCredentialHash, "credential hash cannot be zero")
	}
	return h, nil
}

// IsZero reports whether the hash is absent or all zeroes.
func (h CredentialHash) IsZero() bool {
	return h == "" || h == ZeroHash
}

func (h CredentialHash) String() string {
	return string(h)
}

// LogicRef identifies an executable logic version behind the upgrade gate.
// It is opaque to the core: any non-empty trimmed string is accepted.
type LogicRef string

// ParseLogicRef validates a logic reference from external input.
func ParseLogicRef(s string) (LogicRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "logic reference cannot be empty")
	}
	return LogicRef(s), nil
}

// IsNil reports whether no logic reference is set.
func (r LogicRef) IsNil() bool {
	return r == ""
}

func (r LogicRef) String() string {
	return string(r)
}
