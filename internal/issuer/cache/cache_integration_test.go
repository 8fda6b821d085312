//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attestor/internal/issuer/cache"
	id "attestor/pkg/domain"
	"attestor/pkg/testutil/containers"
)

const issuerA = id.Identity("0x00000000000000000000000000000000000000aa")

type CacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.Cache
}

func TestCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.cache = cache.New(s.redis.Client, time.Minute)
}

func (s *CacheSuite) TearDownSuite() {
	s.redis.Close(context.Background())
}

func (s *CacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *CacheSuite) TestMissThenHit() {
	ctx := context.Background()

	_, found, err := s.cache.Get(ctx, issuerA)
	s.NoError(err)
	s.False(found)

	s.NoError(s.cache.Set(ctx, issuerA, true))

	authorized, found, err := s.cache.Get(ctx, issuerA)
	s.NoError(err)
	s.True(found)
	s.True(authorized)
}

func (s *CacheSuite) TestStoresNegativeAnswers() {
	ctx := context.Background()

	s.NoError(s.cache.Set(ctx, issuerA, false))

	authorized, found, err := s.cache.Get(ctx, issuerA)
	s.NoError(err)
	s.True(found)
	s.False(authorized)
}

func (s *CacheSuite) TestInvalidate() {
	ctx := context.Background()

	s.NoError(s.cache.Set(ctx, issuerA, true))
	s.NoError(s.cache.Invalidate(ctx, issuerA))

	_, found, err := s.cache.Get(ctx, issuerA)
	s.NoError(err)
	s.False(found)
}

func (s *CacheSuite) TestTTLExpiry() {
	ctx := context.Background()
	short := cache.New(s.redis.Client, 50*time.Millisecond)

	s.NoError(short.Set(ctx, issuerA, true))
	time.Sleep(100 * time.Millisecond)

	_, found, err := short.Get(ctx, issuerA)
	s.NoError(err)
	s.False(found)
}
