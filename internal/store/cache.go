package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisClient is the subset of go-redis the cache needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetEx(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// CachedStore caches GetOne lookups for selected collections in redis and
// invalidates them on Update and Delete. Every other call goes straight through.
type CachedStore struct {
	RecordStore
	rdb         RedisClient
	ttl         time.Duration
	collections map[string]bool
}

func NewCachedStore(next RecordStore, rdb RedisClient, ttl time.Duration, collections ...string) *CachedStore {
	set := make(map[string]bool, len(collections))
	for _, c := range collections {
		set[c] = true
	}
	return &CachedStore{RecordStore: next, rdb: rdb, ttl: ttl, collections: set}
}

func cacheKey(collection, id string) string {
	return "record:" + collection + ":" + id
}

func (c *CachedStore) GetOne(ctx context.Context, collection, id string) (Record, error) {
	if !c.collections[collection] {
		return c.RecordStore.GetOne(ctx, collection, id)
	}

	key := cacheKey(collection, id)
	cached, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		var r Record
		if err := json.Unmarshal([]byte(cached), &r); err == nil {
			return r, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Str("key", key).Msg("Redis read failed, using record store")
	}

	r, err := c.RecordStore.GetOne(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(r)
	if err == nil {
		if err := c.rdb.SetEx(ctx, key, data, c.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to cache record")
		}
	}
	return r, nil
}

func (c *CachedStore) Update(ctx context.Context, collection, id string, data Record) (Record, error) {
	r, err := c.RecordStore.Update(ctx, collection, id, data)
	c.invalidate(ctx, collection, id)
	return r, err
}

func (c *CachedStore) Delete(ctx context.Context, collection, id string) error {
	err := c.RecordStore.Delete(ctx, collection, id)
	c.invalidate(ctx, collection, id)
	return err
}

func (c *CachedStore) invalidate(ctx context.Context, collection, id string) {
	if !c.collections[collection] {
		return
	}
	if err := c.rdb.Del(ctx, cacheKey(collection, id)).Err(); err != nil {
		log.Warn().Err(err).Str("collection", collection).Str("id", id).Msg("Failed to invalidate cached record")
	}
}

// Close releases the redis connection.
func (c *CachedStore) Close() error {
	return c.rdb.Close()
}
