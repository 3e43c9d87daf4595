package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestSnapshotCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewSnapshotCache(client, time.Minute)
	ctx := context.Background()

	loads := 0
	loader := func(ctx context.Context) ([]LedgerEntry, error) {
		loads++
		return []LedgerEntry{{ItemCode: "A", Unit: "kg", GoodQty: 5, TotalValue: 50, WeightedAvgPrice: 10}}, nil
	}

	entries, err := cache.Fetch(ctx, loader)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 1, loads)

	// Second fetch is served from Redis.
	entries, err = cache.Fetch(ctx, loader)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 1, loads)

	require.NoError(t, cache.Invalidate(ctx))
	_, err = cache.Fetch(ctx, loader)
	require.NoError(t, err)
	require.Equal(t, 2, loads)
}

func TestSnapshotCacheNilClient(t *testing.T) {
	var cache *SnapshotCache
	entries, err := cache.Fetch(context.Background(), func(ctx context.Context) ([]LedgerEntry, error) {
		return []LedgerEntry{{ItemCode: "B", Unit: "pcs"}}, nil
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
