package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultCacheKey = "reservation-service:snapshot"

// RedisCache stores the snapshot as a single JSON value.
type RedisCache struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, key string, ttl time.Duration) *RedisCache {
	if key == "" {
		key = DefaultCacheKey
	}
	return &RedisCache{rdb: rdb, key: key, ttl: ttl}
}

// Load returns nil without error when nothing is cached.
func (c *RedisCache) Load(ctx context.Context) (*Snapshot, error) {
	raw, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(raw)
}

func (c *RedisCache) Save(ctx context.Context, snap *Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key, raw, c.ttl).Err()
}

func (c *RedisCache) ReadyCheck(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func decodeSnapshot(raw []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode cached snapshot: %w", err)
	}
	if snap.FetchedAt.IsZero() {
		return nil, errors.New("decode cached snapshot: missing fetched_at")
	}
	return &snap, nil
}
