// Package cache publishes the latest graph snapshot to Redis for external
// viewers. Speed over durability: the log, not the cache, is the source of
// truth, and a stale cached snapshot must never be trusted over full replay.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"causalGraphApp/internal/domain/model"
	"causalGraphApp/internal/domain/repository"
)

const snapshotKey = "causalgraph:snapshot:latest"

// RedisSnapshotCache implements the SnapshotCache interface backed by Redis.
type RedisSnapshotCache struct {
	client *redis.Client
}

func NewRedisSnapshotCache(addr, password string, db int) *RedisSnapshotCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisSnapshotCache{client: client}
}

// Ensure RedisSnapshotCache implements the SnapshotCache interface
var _ repository.SnapshotCache = (*RedisSnapshotCache)(nil)

// Ping verifies connectivity at bootstrap.
func (r *RedisSnapshotCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// SaveSnapshot stores the snapshot under a fixed key, overwriting the
// previous one.
func (r *RedisSnapshotCache) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return r.client.Set(ctx, snapshotKey, data, 0).Err()
}

// GetSnapshot retrieves the latest published snapshot; (nil, nil) when none
// has been published yet.
func (r *RedisSnapshotCache) GetSnapshot(ctx context.Context) (*model.Snapshot, error) {
	data, err := r.client.Get(ctx, snapshotKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var snap model.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Close releases the Redis client.
func (r *RedisSnapshotCache) Close() error {
	return r.client.Close()
}
