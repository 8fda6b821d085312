package store

import (
	"context"
	"sync"
	"time"

	"attestor/internal/ledger/models"
	id "attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
)

// InMemory keeps credential records and the identifier counter under one
// mutex, so mint-and-assign-id is atomic and revocation races resolve to a
// single winner.
//
// Records expose no owner-update path at all: write-once ownership is
// enforced by construction, not by a check.
type InMemory struct {
	mu          sync.RWMutex
	config      *models.LedgerConfig
	counter     uint64
	credentials map[id.CredentialID]*models.Credential
}

func NewInMemory() *InMemory {
	return &InMemory{credentials: make(map[id.CredentialID]*models.Credential)}
}

// InitializeOnce installs the ledger configuration. Returns
// sentinel.ErrConflict if already initialized.
func (s *InMemory) InitializeOnce(_ context.Context, config *models.LedgerConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config != nil {
		return sentinel.ErrConflict
	}
	cp := *config
	s.config = &cp
	return nil
}

// GetConfig returns the ledger configuration, or sentinel.ErrNotFound before
// initialization.
func (s *InMemory) GetConfig(_ context.Context) (*models.LedgerConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.config
	return &cp, nil
}

// Create assigns the next identifier and stores the record. The counter
// only moves on success, so failed preconditions upstream never consume ids.
func (s *InMemory) Create(_ context.Context, owner, issuer id.Identity, hash id.CredentialHash, now time.Time) (id.CredentialID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	credentialID := id.CredentialID(s.counter)
	s.credentials[credentialID] = &models.Credential{
		ID:       credentialID,
		Owner:    owner,
		Issuer:   issuer,
		Hash:     hash,
		IssuedAt: now,
	}
	return credentialID, nil
}

// FindByID returns a copy of the record, or sentinel.ErrNotFound.
func (s *InMemory) FindByID(_ context.Context, credentialID id.CredentialID) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.credentials[credentialID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *record
	return &cp, nil
}

// Revoke flips the revoked flag if it is still clear. Returns
// sentinel.ErrNotFound for unknown ids and sentinel.ErrInvalidState when the
// flag was already set (a concurrent revoke won).
func (s *InMemory) Revoke(_ context.Context, credentialID id.CredentialID, reason string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.credentials[credentialID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if record.Revoked {
		return sentinel.ErrInvalidState
	}
	record.ApplyRevocation(reason, now)
	return nil
}

// ListByOwner returns the owner's credentials ordered by id.
func (s *InMemory) ListByOwner(_ context.Context, owner id.Identity) ([]models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Credential
	for i := uint64(1); i <= s.counter; i++ {
		if record, ok := s.credentials[id.CredentialID(i)]; ok && record.Owner == owner {
			out = append(out, *record)
		}
	}
	return out, nil
}

// Count returns the number of minted credentials.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.credentials), nil
}
