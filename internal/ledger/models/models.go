package models

import (
	"time"

	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

// Credential is a non-transferable attestation record.
//
// Invariants:
//   - ID is assigned once by the ledger, never reused or reassigned
//   - Owner is written exactly once, at mint; no path may change it after
//   - Issuer and Hash are immutable, bound at mint time
//   - Revoked transitions false→true at most once and never back
//
// State machine: nonexistent → active (mint) → revoked (terminal). Both
// active and revoked credentials stay owned by the same identity forever;
// the owner holds no rights over the record itself.
type Credential struct {
	ID           id.CredentialID   `json:"id"`
	Owner        id.Identity       `json:"owner"`
	Issuer       id.Identity       `json:"issuer"`
	Hash         id.CredentialHash `json:"hash"`
	Revoked      bool              `json:"revoked"`
	RevokeReason string            `json:"revoke_reason,omitempty"`
	IssuedAt     time.Time         `json:"issued_at"`
	RevokedAt    *time.Time        `json:"revoked_at,omitempty"`
}

// IsValid reports whether the credential is active.
func (c *Credential) IsValid() bool {
	return !c.Revoked
}

// CanRevoke checks the one-way transition is still available.
// Use with ApplyRevocation; stores enforce the same condition atomically.
func (c *Credential) CanRevoke() error {
	if c.Revoked {
		return dErrors.New(dErrors.CodeInvariantViolation, "credential is already revoked")
	}
	return nil
}

// ApplyRevocation flips the revoked flag. Call CanRevoke first.
func (c *Credential) ApplyRevocation(reason string, now time.Time) {
	c.Revoked = true
	c.RevokeReason = reason
	c.RevokedAt = &now
}

// LedgerConfig is the one-time ledger identity: display metadata, the
// registry it defers authorization to, and the admin recorded at setup.
type LedgerConfig struct {
	Name          string      `json:"name"`
	Symbol        string      `json:"symbol"`
	Registry      id.Identity `json:"registry"`
	Admin         id.Identity `json:"admin"`
	InitializedAt time.Time   `json:"initialized_at"`
}

// NewLedgerConfig validates and constructs the ledger configuration.
func NewLedgerConfig(name, symbol string, registry, admin id.Identity, now time.Time) (*LedgerConfig, error) {
	if registry.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidRegistryRef, "issuer registry reference cannot be zero")
	}
	if admin.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidAddress, "admin cannot be the zero identity")
	}
	return &LedgerConfig{
		Name:          name,
		Symbol:        symbol,
		Registry:      registry,
		Admin:         admin,
		InitializedAt: now,
	}, nil
}
