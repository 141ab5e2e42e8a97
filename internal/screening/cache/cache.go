// Package cache stores recent risk assessments in Redis to respect provider
// rate limits. Cache failures are tolerated; callers fall through to the
// provider.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"onboard-gateway/internal/screening/models"
)

const keyPrefix = "screening:assessment:"

// Cache wraps a Redis client for assessment caching.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New constructs an assessment cache. A nil client yields a disabled cache
// where every lookup misses.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Get returns the cached assessment for an address, or (nil, nil) on miss.
func (c *Cache) Get(ctx context.Context, address string) (*models.Assessment, error) {
	if c.rdb == nil {
		return nil, nil
	}

	raw, err := c.rdb.Get(ctx, keyPrefix+address).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached assessment: %w", err)
	}

	var assessment models.Assessment
	if err := json.Unmarshal(raw, &assessment); err != nil {
		return nil, fmt.Errorf("decode cached assessment: %w", err)
	}
	return &assessment, nil
}

// Put stores an assessment with the configured TTL.
func (c *Cache) Put(ctx context.Context, assessment *models.Assessment) error {
	if c.rdb == nil {
		return nil
	}

	raw, err := json.Marshal(assessment)
	if err != nil {
		return fmt.Errorf("encode assessment: %w", err)
	}
	if err := c.rdb.Set(ctx, keyPrefix+assessment.Address, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache assessment: %w", err)
	}
	return nil
}
