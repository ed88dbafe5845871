package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/optiondesk/marketdata/internal/catalog"
)

// Redis stores the catalog snapshot as JSON under a single key.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis creates a Redis-backed catalog cache.
func NewRedis(client *redis.Client, key string) *Redis {
	return &Redis{client: client, key: key}
}

// Get implements catalog.Cache.
func (r *Redis) Get(ctx context.Context) (catalog.Snapshot, bool, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return catalog.Snapshot{}, false, nil
	}
	if err != nil {
		return catalog.Snapshot{}, false, fmt.Errorf("redis get %s: %w", r.key, err)
	}

	var snap catalog.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return catalog.Snapshot{}, false, fmt.Errorf("decode cached catalog: %w", err)
	}
	return snap, true, nil
}

// Put implements catalog.Cache. The key carries no TTL; staleness is the
// store's freshness check, not an expiry race.
func (r *Redis) Put(ctx context.Context, snap catalog.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode catalog snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}
