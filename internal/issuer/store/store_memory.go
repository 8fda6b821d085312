package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"attestor/internal/issuer/models"
	id "attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
)

// InMemory keeps the authorization set in a map guarded by a mutex. The
// check-and-set under one lock makes racing AddIssuer calls resolve to
// exactly one winner, matching the postgres conditional update.
type InMemory struct {
	mu      sync.RWMutex
	issuers map[id.Identity]*models.IssuerRecord
}

func NewInMemory() *InMemory {
	return &InMemory{issuers: make(map[id.Identity]*models.IssuerRecord)}
}

// Authorize sets the flag for issuer. Returns sentinel.ErrConflict when the
// issuer is already authorized.
func (s *InMemory) Authorize(_ context.Context, issuer id.Identity, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, exists := s.issuers[issuer]
	if exists && record.Authorized {
		return sentinel.ErrConflict
	}
	if exists {
		record.Authorized = true
		record.UpdatedAt = now
		return nil
	}
	s.issuers[issuer] = &models.IssuerRecord{
		Identity:   issuer,
		Authorized: true,
		AddedAt:    now,
		UpdatedAt:  now,
	}
	return nil
}

// Deauthorize clears the flag for issuer. Returns sentinel.ErrNotFound when
// the issuer is not currently authorized.
func (s *InMemory) Deauthorize(_ context.Context, issuer id.Identity, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, exists := s.issuers[issuer]
	if !exists || !record.Authorized {
		return sentinel.ErrNotFound
	}
	record.Authorized = false
	record.UpdatedAt = now
	return nil
}

// IsAuthorized reports the current flag. False for never-seen identities.
func (s *InMemory) IsAuthorized(_ context.Context, issuer id.Identity) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, exists := s.issuers[issuer]
	return exists && record.Authorized, nil
}

// List returns all records, authorized or not, ordered by identity for
// stable output.
func (s *InMemory) List(_ context.Context) ([]models.IssuerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.IssuerRecord, 0, len(s.issuers))
	for _, record := range s.issuers {
		out = append(out, *record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out, nil
}
