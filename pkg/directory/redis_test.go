package directory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innover-platform/identity-core/pkg/identity"
)

// fakeRedis is an in-memory RedisCmdable for unit tests. Integration
// tests against a real Redis live in integration_test.go.
type fakeRedis struct {
	data map[string]string
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	val, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func TestRedisCache_SetGet(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	cache := NewRedisCache(fake, time.Minute)
	ctx := context.Background()

	record := &identity.DirectoryRecord{
		Username: "bob",
		Email:    "bob@example.com",
		Roles:    []string{"approver"},
	}
	cache.Set(ctx, testSubjectID, record)

	got, ok := cache.Get(ctx, testSubjectID)
	require.True(t, ok)
	assert.Equal(t, record, got)

	// Stored under the namespaced key.
	_, ok = fake.data[redisKeyPrefix+testSubjectID]
	assert.True(t, ok)
}

func TestRedisCache_Miss(t *testing.T) {
	t.Parallel()

	cache := NewRedisCache(newFakeRedis(), time.Minute)
	_, ok := cache.Get(context.Background(), "absent")
	assert.False(t, ok)
}

func TestRedisCache_ErrorIsMiss(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	fake.err = errors.New("connection refused")
	cache := NewRedisCache(fake, time.Minute)
	ctx := context.Background()

	_, ok := cache.Get(ctx, testSubjectID)
	assert.False(t, ok)

	// Writes fail silently too.
	cache.Set(ctx, testSubjectID, &identity.DirectoryRecord{Username: "bob"})
}

func TestRedisCache_CorruptEntryIsMiss(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	fake.data[redisKeyPrefix+testSubjectID] = "{not json"
	cache := NewRedisCache(fake, time.Minute)

	_, ok := cache.Get(context.Background(), testSubjectID)
	assert.False(t, ok)
}

func TestRedisCache_WithCachedLookup(t *testing.T) {
	t.Parallel()

	inner := &countingLookup{records: map[string]*identity.DirectoryRecord{
		testSubjectID: {Username: "bob", Roles: []string{"approver"}},
	}}
	lookup := NewCachedLookup(inner, NewRedisCache(newFakeRedis(), time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		record, err := lookup.LookupUser(ctx, testSubjectID)
		require.NoError(t, err)
		assert.Equal(t, "bob", record.Username)
		assert.Equal(t, []string{"approver"}, record.Roles)
	}
	assert.Equal(t, 1, inner.calls)
}

func TestRedisCache_RecordRoundTrip(t *testing.T) {
	t.Parallel()

	// The stored payload must decode back to an identical record.
	record := &identity.DirectoryRecord{
		Username:   "bob",
		Email:      "bob@example.com",
		Roles:      []string{"approver", "auditor"},
		GivenName:  "Bob",
		FamilyName: "Jones",
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)
	var decoded identity.DirectoryRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *record, decoded)
}
