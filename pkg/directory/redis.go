package directory

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/innover-platform/identity-core/pkg/identity"
)

// DefaultRedisTTL is the lifetime of a Redis-cached directory record.
// Directory attributes change rarely; an hour keeps replicas warm
// without serving very stale role sets.
const DefaultRedisTTL = time.Hour

// redisKeyPrefix namespaces directory records in a shared Redis.
const redisKeyPrefix = "directory:user:"

// RedisCmdable is the subset of go-redis commands the cache uses. It is
// satisfied by [*redis.Client] and by mocks in unit tests.
type RedisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

var _ RedisCmdable = (*redis.Client)(nil)

// RedisCache is a [Cache] backed by Redis, shared across service
// replicas. Records are stored as JSON under "directory:user:{id}" with
// a TTL.
//
// Cache errors are logged and treated as misses: a Redis outage must
// never break identity resolution.
type RedisCache struct {
	client RedisCmdable
	ttl    time.Duration
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache creates a RedisCache. A zero ttl falls back to
// [DefaultRedisTTL].
func NewRedisCache(client RedisCmdable, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached record for id. Missing keys, Redis errors, and
// undecodable payloads are all misses.
func (c *RedisCache) Get(ctx context.Context, id string) (*identity.DirectoryRecord, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.WarnContext(ctx, "directory: redis cache read failed",
				"subject_id", id,
				"error", err,
			)
		}
		return nil, false
	}

	var record identity.DirectoryRecord
	if err := json.Unmarshal(data, &record); err != nil {
		slog.WarnContext(ctx, "directory: redis cache entry is corrupt",
			"subject_id", id,
			"error", err,
		)
		return nil, false
	}
	return &record, true
}

// Set stores the record for id with the configured TTL. Write failures
// are logged and dropped.
func (c *RedisCache) Set(ctx context.Context, id string, record *identity.DirectoryRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		slog.WarnContext(ctx, "directory: failed to encode record for cache",
			"subject_id", id,
			"error", err,
		)
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+id, data, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "directory: redis cache write failed",
			"subject_id", id,
			"error", err,
		)
	}
}
