package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"attestor/internal/audit"
	authorityService "attestor/internal/authority/service"
	authorityStore "attestor/internal/authority/store"
	"attestor/internal/issuer/store"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

const (
	adminAddr    = id.Identity("0x00000000000000000000000000000000000000a1")
	strangerAddr = id.Identity("0x00000000000000000000000000000000000000b2")
	issuerAddr   = id.Identity("0x00000000000000000000000000000000000000c3")
)

type IssuerServiceSuite struct {
	suite.Suite
	ctx      context.Context
	store    *store.InMemory
	auditLog *audit.InMemoryStore
	service  *Service
}

func TestIssuerServiceSuite(t *testing.T) {
	suite.Run(t, new(IssuerServiceSuite))
}

func (s *IssuerServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.auditLog = audit.NewInMemoryStore()

	authStore := authorityStore.NewInMemory()
	authority := authorityService.New(authStore)
	s.Require().NoError(authority.Initialize(s.ctx, adminAddr, "v1"))

	s.service = New(s.store, authority,
		WithAuditPublisher(audit.NewPublisher(s.auditLog)),
	)
}

func (s *IssuerServiceSuite) TestAddIssuer() {
	s.Run("admin authorizes an issuer", func() {
		s.NoError(s.service.AddIssuer(s.ctx, adminAddr, issuerAddr))

		authorized, err := s.service.IsAuthorizedIssuer(s.ctx, issuerAddr)
		s.NoError(err)
		s.True(authorized)
	})

	s.Run("duplicate add conflicts", func() {
		err := s.service.AddIssuer(s.ctx, adminAddr, issuerAddr)
		s.True(dErrors.Is(err, dErrors.CodeIssuerAlreadyExists))
	})

	s.Run("non-admin is refused and nothing changes", func() {
		err := s.service.AddIssuer(s.ctx, strangerAddr, strangerAddr)
		s.True(dErrors.Is(err, dErrors.CodeNotProtocolAdmin))

		authorized, cerr := s.service.IsAuthorizedIssuer(s.ctx, strangerAddr)
		s.NoError(cerr)
		s.False(authorized)
	})

	s.Run("zero issuer is refused", func() {
		err := s.service.AddIssuer(s.ctx, adminAddr, id.ZeroIdentity)
		s.True(dErrors.Is(err, dErrors.CodeInvalidAddress))
	})
}

func (s *IssuerServiceSuite) TestRemoveIssuer() {
	s.Require().NoError(s.service.AddIssuer(s.ctx, adminAddr, issuerAddr))

	s.Run("non-admin is refused", func() {
		err := s.service.RemoveIssuer(s.ctx, strangerAddr, issuerAddr)
		s.True(dErrors.Is(err, dErrors.CodeNotProtocolAdmin))
	})

	s.Run("admin withdraws authorization", func() {
		s.NoError(s.service.RemoveIssuer(s.ctx, adminAddr, issuerAddr))

		authorized, err := s.service.IsAuthorizedIssuer(s.ctx, issuerAddr)
		s.NoError(err)
		s.False(authorized)
	})

	s.Run("removing a non-authorized issuer fails", func() {
		err := s.service.RemoveIssuer(s.ctx, adminAddr, issuerAddr)
		s.True(dErrors.Is(err, dErrors.CodeNotAuthorizedIssuer))
	})

	s.Run("removed issuer can be re-added", func() {
		s.NoError(s.service.AddIssuer(s.ctx, adminAddr, issuerAddr))

		authorized, err := s.service.IsAuthorizedIssuer(s.ctx, issuerAddr)
		s.NoError(err)
		s.True(authorized)
	})
}

func (s *IssuerServiceSuite) TestIsAuthorizedIssuer() {
	s.Run("zero identity is never authorized", func() {
		authorized, err := s.service.IsAuthorizedIssuer(s.ctx, id.ZeroIdentity)
		s.NoError(err)
		s.False(authorized)
	})

	s.Run("unknown identity is not authorized", func() {
		authorized, err := s.service.IsAuthorizedIssuer(s.ctx, strangerAddr)
		s.NoError(err)
		s.False(authorized)
	})
}

func (s *IssuerServiceSuite) TestListIssuers() {
	s.Require().NoError(s.service.AddIssuer(s.ctx, adminAddr, issuerAddr))

	s.Run("admin sees the registry", func() {
		records, err := s.service.ListIssuers(s.ctx, adminAddr)
		s.NoError(err)
		s.Require().Len(records, 1)
		s.Equal(issuerAddr, records[0].Identity)
		s.True(records[0].Authorized)
	})

	s.Run("non-admin is refused", func() {
		_, err := s.service.ListIssuers(s.ctx, strangerAddr)
		s.True(dErrors.Is(err, dErrors.CodeNotProtocolAdmin))
	})
}

// The cache answers before the store on hits, falls through on misses, and is
// dropped on mutation.
func (s *IssuerServiceSuite) TestCacheInteraction() {
	cache := newFakeCache()
	cached := New(s.store, adminGateFunc(func(context.Context, id.Identity) error { return nil }),
		WithCache(cache),
	)

	s.Require().NoError(cached.AddIssuer(s.ctx, adminAddr, issuerAddr))
	s.Equal(1, cache.invalidations)

	authorized, err := cached.IsAuthorizedIssuer(s.ctx, issuerAddr)
	s.NoError(err)
	s.True(authorized)
	s.Equal(1, cache.sets)

	// Second check is served from the cache.
	authorized, err = cached.IsAuthorizedIssuer(s.ctx, issuerAddr)
	s.NoError(err)
	s.True(authorized)
	s.Equal(1, cache.sets)

	s.Require().NoError(cached.RemoveIssuer(s.ctx, adminAddr, issuerAddr))
	s.Equal(2, cache.invalidations)

	authorized, err = cached.IsAuthorizedIssuer(s.ctx, issuerAddr)
	s.NoError(err)
	s.False(authorized)
}

type adminGateFunc func(ctx context.Context, caller id.Identity) error

func (f adminGateFunc) RequireAdmin(ctx context.Context, caller id.Identity) error {
	return f(ctx, caller)
}

type fakeCache struct {
	entries       map[id.Identity]bool
	sets          int
	invalidations int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[id.Identity]bool)}
}

func (c *fakeCache) Get(_ context.Context, issuer id.Identity) (bool, bool, error) {
	v, ok := c.entries[issuer]
	return v, ok, nil
}

func (c *fakeCache) Set(_ context.Context, issuer id.Identity, authorized bool) error {
	c.entries[issuer] = authorized
	c.sets++
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, issuer id.Identity) error {
	delete(c.entries, issuer)
	c.invalidations++
	return nil
}
