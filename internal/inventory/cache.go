package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const snapshotCacheKey = "inventory:snapshot"

// SnapshotCache keeps the ledger snapshot in Redis for the read-heavy stock
// view. Every ledger mutation invalidates it. Concurrent misses are collapsed
// into a single load.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewSnapshotCache instantiates the cache helper.
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

// Fetch loads the cached snapshot or populates it using the loader.
func (c *SnapshotCache) Fetch(ctx context.Context, loader func(context.Context) ([]LedgerEntry, error)) ([]LedgerEntry, error) {
	if loader == nil {
		return nil, errors.New("inventory: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	raw, err := c.client.Get(ctx, snapshotCacheKey).Bytes()
	if err == nil {
		var entries []LedgerEntry
		if err := json.Unmarshal(raw, &entries); err == nil {
			return entries, nil
		}
		// Corrupt payload falls through to the loader.
	} else if !errors.Is(err, redis.Nil) {
		return nil, err
	}
	result, err, _ := c.group.Do(snapshotCacheKey, func() (any, error) {
		entries, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(entries)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, snapshotCacheKey, encoded, c.ttl).Err(); err != nil {
			return nil, err
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]LedgerEntry), nil
}

// Invalidate drops the cached snapshot.
func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, snapshotCacheKey).Err()
}
