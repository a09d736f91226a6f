//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"enrollgate/internal/verification/cache"
	"enrollgate/internal/verification/models"
	"enrollgate/pkg/platform/sentinel"
	"enrollgate/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.Redis
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.cache = cache.NewRedis(s.redis.Client, 2*time.Second)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestPutGetRoundTrip() {
	ctx := context.Background()
	record := &models.StudentRecord{
		RegistrationNumber: "21/U/12345",
		FirstName:          "Amara",
		LastName:           "Okello",
		RawPayloadHash:     "abc123",
	}

	s.Require().NoError(s.cache.Put(ctx, "Gulu University", "21/U/12345", record))

	got, err := s.cache.Get(ctx, "gulu university", "21/U/12345")
	s.Require().NoError(err)
	s.Equal(record, got)
}

func (s *RedisCacheSuite) TestMissReturnsNotFound() {
	_, err := s.cache.Get(context.Background(), "Gulu University", "nobody")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisCacheSuite) TestEntriesExpire() {
	ctx := context.Background()
	record := &models.StudentRecord{RegistrationNumber: "21/U/12345"}

	s.Require().NoError(s.cache.Put(ctx, "Gulu University", "21/U/12345", record))
	time.Sleep(2500 * time.Millisecond)

	_, err := s.cache.Get(ctx, "Gulu University", "21/U/12345")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisCacheSuite) TestCorruptEntryDegradesToMiss() {
	ctx := context.Background()
	s.Require().NoError(s.redis.Client.Set(ctx, "verify:record:gulu university:21/U/12345", "{not json", time.Minute).Err())

	_, err := s.cache.Get(ctx, "Gulu University", "21/U/12345")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
