package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/propchain/marketd/internal/domain"
)

const propertyTTL = 5 * time.Minute

// PropertyCache implements domain.PropertyCache using Redis hashes with
// JSON-serialized property data.
//
// Key schema:
//
//	property:{id} - hash with field "data" containing JSON
type PropertyCache struct {
	rdb *redis.Client
}

// NewPropertyCache creates a PropertyCache backed by the given Client.
func NewPropertyCache(c *Client) *PropertyCache {
	return &PropertyCache{rdb: c.Underlying()}
}

func propertyKey(id uint64) string {
	return "property:" + strconv.FormatUint(id, 10)
}

// Set stores a property with a 5-minute TTL.
func (pc *PropertyCache) Set(ctx context.Context, p domain.Property) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("redis: marshal property %d: %w", p.ID, err)
	}

	key := propertyKey(p.ID)

	pipe := pc.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, propertyTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set property %d: %w", p.ID, err)
	}
	return nil
}

// Get retrieves a property by id. Returns domain.ErrNotFound on a miss.
func (pc *PropertyCache) Get(ctx context.Context, id uint64) (domain.Property, error) {
	data, err := pc.rdb.HGet(ctx, propertyKey(id), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Property{}, domain.ErrNotFound
		}
		return domain.Property{}, fmt.Errorf("redis: get property %d: %w", id, err)
	}

	var p domain.Property
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Property{}, fmt.Errorf("redis: unmarshal property %d: %w", id, err)
	}
	return p, nil
}

// Invalidate drops a property from the cache. Called after every mutation so
// readers never see a stale owner or listing state.
func (pc *PropertyCache) Invalidate(ctx context.Context, id uint64) error {
	if err := pc.rdb.Del(ctx, propertyKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate property %d: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.PropertyCache = (*PropertyCache)(nil)
