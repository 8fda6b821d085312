//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attestor/internal/authority/models"
	"attestor/internal/authority/store"
	id "attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
	"attestor/pkg/testutil/containers"
)

const (
	adminAddr = id.Identity("0x00000000000000000000000000000000000000a1")
	successor = id.Identity("0x00000000000000000000000000000000000000c3")
)

type AuthorityPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	now      time.Time
}

func TestAuthorityPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuthorityPostgresSuite))
}

func (s *AuthorityPostgresSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *AuthorityPostgresSuite) TearDownSuite() {
	s.postgres.Close(context.Background())
}

func (s *AuthorityPostgresSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *AuthorityPostgresSuite) initialize() *models.Authority {
	authority, err := models.NewAuthority(adminAddr, "v1", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.InitializeOnce(context.Background(), authority))
	return authority
}

func (s *AuthorityPostgresSuite) TestInitializeOnce() {
	ctx := context.Background()
	authority := s.initialize()

	s.ErrorIs(s.store.InitializeOnce(ctx, authority), sentinel.ErrConflict)

	got, err := s.store.Get(ctx)
	s.Require().NoError(err)
	s.Equal(adminAddr, got.Admin)
	s.Equal(id.LogicRef("v1"), got.ActiveLogic)
}

func (s *AuthorityPostgresSuite) TestGetBeforeInitialize() {
	_, err := s.store.Get(context.Background())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *AuthorityPostgresSuite) TestUpdateAdmin() {
	ctx := context.Background()
	s.initialize()

	s.NoError(s.store.UpdateAdmin(ctx, successor, s.now.Add(time.Minute)))

	got, err := s.store.Get(ctx)
	s.Require().NoError(err)
	s.Equal(successor, got.Admin)
}

func (s *AuthorityPostgresSuite) TestUpdateActiveLogic() {
	ctx := context.Background()
	s.initialize()

	s.NoError(s.store.UpdateActiveLogic(ctx, "v2", s.now.Add(time.Minute)))

	got, err := s.store.Get(ctx)
	s.Require().NoError(err)
	s.Equal(id.LogicRef("v2"), got.ActiveLogic)
}
