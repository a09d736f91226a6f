package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"enrollgate/internal/verification/models"
	"enrollgate/pkg/platform/sentinel"
)

// Redis key prefix for cached student records.
const recordKeyPrefix = "verify:record:"

// Redis is the distributed cache variant for multi-instance deployments
// where concurrent registrations should share lookups.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis constructs a redis-backed cache. Entries expire server-side via
// SET with TTL.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (c *Redis) Get(ctx context.Context, institution, regNumber string) (*models.StudentRecord, error) {
	payload, err := c.client.Get(ctx, recordKeyPrefix+Key(institution, regNumber)).Bytes()
	if errors.Is(err, redis.Nil) {
		cacheMissesTotal.Inc()
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var record models.StudentRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		// A corrupt entry is as good as a miss; the next Put overwrites it.
		cacheMissesTotal.Inc()
		return nil, sentinel.ErrNotFound
	}
	cacheHitsTotal.Inc()
	return &record, nil
}

func (c *Redis) Put(ctx context.Context, institution, regNumber string, record *models.StudentRecord) error {
	if record == nil {
		return fmt.Errorf("student record is required")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, recordKeyPrefix+Key(institution, regNumber), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}
