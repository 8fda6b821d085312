package store

import (
	"context"
	"sync"
	"time"

	"attestor/internal/authority/models"
	id "attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
)

// InMemory holds the governance record for tests and single-node runs.
type InMemory struct {
	mu        sync.RWMutex
	authority *models.Authority
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

// InitializeOnce installs the governance record. Returns sentinel.ErrConflict
// if one already exists, regardless of content.
func (s *InMemory) InitializeOnce(_ context.Context, authority *models.Authority) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authority != nil {
		return sentinel.ErrConflict
	}
	cp := *authority
	s.authority = &cp
	return nil
}

// Get returns the governance record, or sentinel.ErrNotFound before
// initialization.
func (s *InMemory) Get(_ context.Context) (*models.Authority, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.authority == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.authority
	return &cp, nil
}

// UpdateAdmin replaces the administrator identity.
func (s *InMemory) UpdateAdmin(_ context.Context, newAdmin id.Identity, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authority == nil {
		return sentinel.ErrNotFound
	}
	s.authority.Admin = newAdmin
	s.authority.UpdatedAt = now
	return nil
}

// UpdateActiveLogic swaps the active logic pointer.
func (s *InMemory) UpdateActiveLogic(_ context.Context, ref id.LogicRef, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authority == nil {
		return sentinel.ErrNotFound
	}
	s.authority.ActiveLogic = ref
	s.authority.UpdatedAt = now
	return nil
}
