//go:build integration

// Integration tests for the Redis-backed directory cache, requiring a
// running Docker daemon. Run with:
//
//	go test -v -race -tags=integration ./pkg/directory/...
package directory_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/innover-platform/identity-core/internal/testutil/containers"
	"github.com/innover-platform/identity-core/pkg/directory"
	iderr "github.com/innover-platform/identity-core/pkg/errors"
	"github.com/innover-platform/identity-core/pkg/identity"
)

// RedisCacheIntegrationSuite runs the Redis cache tests against a single
// shared container, started once in SetupSuite. Test isolation is by
// unique subject ids per test.
type RedisCacheIntegrationSuite struct {
	suite.Suite

	ctx         context.Context
	redisResult *containers.RedisResult
	client      *redis.Client
}

func (s *RedisCacheIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	result, err := containers.StartRedis(s.ctx)
	require.NoError(s.T(), err, "failed to start Redis container")
	s.redisResult = result

	opts, err := redis.ParseURL(result.ConnString)
	require.NoError(s.T(), err)
	s.client = redis.NewClient(opts)
	require.NoError(s.T(), s.client.Ping(s.ctx).Err())
}

func (s *RedisCacheIntegrationSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.redisResult != nil {
		_ = s.redisResult.Container.Terminate(s.ctx)
	}
}

func (s *RedisCacheIntegrationSuite) TestSetGetRoundTrip() {
	cache := directory.NewRedisCache(s.client, time.Minute)

	record := &identity.DirectoryRecord{
		Username:   "bob",
		Email:      "bob@example.com",
		Roles:      []string{"Internal/approver"},
		GivenName:  "Bob",
		FamilyName: "Jones",
	}
	cache.Set(s.ctx, "it-roundtrip", record)

	got, ok := cache.Get(s.ctx, "it-roundtrip")
	require.True(s.T(), ok)
	assert.Equal(s.T(), record, got)
}

func (s *RedisCacheIntegrationSuite) TestMiss() {
	cache := directory.NewRedisCache(s.client, time.Minute)

	_, ok := cache.Get(s.ctx, "it-never-written")
	assert.False(s.T(), ok)
}

func (s *RedisCacheIntegrationSuite) TestTTLExpiry() {
	cache := directory.NewRedisCache(s.client, time.Second)

	cache.Set(s.ctx, "it-expiry", &identity.DirectoryRecord{Username: "short-lived"})

	_, ok := cache.Get(s.ctx, "it-expiry")
	require.True(s.T(), ok)

	time.Sleep(1500 * time.Millisecond)

	_, ok = cache.Get(s.ctx, "it-expiry")
	assert.False(s.T(), ok, "entry must expire after the TTL")
}

func (s *RedisCacheIntegrationSuite) TestCachedLookupSharesRecords() {
	calls := 0
	inner := lookupFunc(func(ctx context.Context, id string) (*identity.DirectoryRecord, error) {
		calls++
		if id != "it-shared" {
			return nil, iderr.Newf(iderr.CodeNotFoundUser, "no user %q", id)
		}
		return &identity.DirectoryRecord{Username: "shared"}, nil
	})

	// Two lookups sharing one Redis simulate two service replicas.
	first := directory.NewCachedLookup(inner, directory.NewRedisCache(s.client, time.Minute))
	second := directory.NewCachedLookup(inner, directory.NewRedisCache(s.client, time.Minute))

	record, err := first.LookupUser(s.ctx, "it-shared")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "shared", record.Username)

	record, err = second.LookupUser(s.ctx, "it-shared")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "shared", record.Username)

	assert.Equal(s.T(), 1, calls, "the second replica must hit the shared cache")
}

// lookupFunc adapts a function to identity.DirectoryLookup.
type lookupFunc func(ctx context.Context, id string) (*identity.DirectoryRecord, error)

func (f lookupFunc) LookupUser(ctx context.Context, id string) (*identity.DirectoryRecord, error) {
	return f(ctx, id)
}

func TestRedisCacheIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	suite.Run(t, new(RedisCacheIntegrationSuite))
}
