package audit

import (
	"time"

	id "attestor/pkg/domain"
)

// Action names the domain occurrence an event records.
type Action string

// Emitted notifications. IssuerAdded through CredentialRevoked mirror the
// registry/ledger operations; the rest cover governance.
const (
	ActionIssuerAdded       Action = "issuer.added"
	ActionIssuerRemoved     Action = "issuer.removed"
	ActionCredentialIssued  Action = "credential.issued"
	ActionCredentialRevoked Action = "credential.revoked"
	ActionAdminInitialized  Action = "admin.initialized"
	ActionAdminTransferred  Action = "admin.transferred"
	ActionUpgradeActivated  Action = "upgrade.activated"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID           string
	Timestamp    time.Time
	Action       Action
	Actor        id.Identity
	Subject      id.Identity
	CredentialID id.CredentialID
	Hash         id.CredentialHash
	Reason       string
	LogicRef     id.LogicRef
	RequestID    string
	ClientIP     string
	UserAgent    string
}
