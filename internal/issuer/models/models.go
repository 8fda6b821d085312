package models

import (
	"time"

	id "attestor/pkg/domain"
)

// IssuerRecord is the per-identity authorization flag.
//
// Invariants:
//   - an identity is authorized iff it was added and not subsequently removed
//   - the flag carries no history: a removed-then-readded issuer is
//     indistinguishable from one never removed
//   - removal is retroactively inert; credentials minted earlier stay valid
type IssuerRecord struct {
	Identity   id.Identity `json:"identity"`
	Authorized bool        `json:"authorized"`
	AddedAt    time.Time   `json:"added_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
