package models

import (
	"time"

	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

// Authority is the single-admin governance record.
//
// Invariants:
//   - Admin is never the zero identity after initialization
//   - the record is created exactly once per deployment
//   - ActiveLogic only changes through the admin-gated upgrade path
type Authority struct {
	Admin         id.Identity `json:"admin"`
	ActiveLogic   id.LogicRef `json:"active_logic"`
	InitializedAt time.Time   `json:"initialized_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// NewAuthority validates and constructs the initial governance record.
func NewAuthority(admin id.Identity, initialLogic id.LogicRef, now time.Time) (*Authority, error) {
	if admin.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidAddress, "admin cannot be the zero identity")
	}
	return &Authority{
		Admin:         admin,
		ActiveLogic:   initialLogic,
		InitializedAt: now,
		UpdatedAt:     now,
	}, nil
}

// IsAdmin reports whether caller holds the administrator role.
func (a *Authority) IsAdmin(caller id.Identity) bool {
	return !caller.IsZero() && caller == a.Admin
}
