package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/devicedetect/pkg/logger"
)

const redisScanBatch = 1000

// Redis is a LoadingCache stored in Redis under a key prefix, suited to values
// shared by several processes such as per-header match results. Backend
// failures are logged and treated as misses so detection keeps working when
// Redis is unavailable.
//
// Concurrent GetOrLoad misses inside one process are coalesced.
type Redis[V any] struct {
	counters

	db     redis.UniversalClient
	prefix string
	ttl    time.Duration
	codec  Codec[V]
	log    *slog.Logger
	flight singleflight.Group
}

// RedisOption configures a Redis cache.
type RedisOption[V any] func(*Redis[V])

// WithTTL sets the expiration of stored entries. Zero means no expiration.
func WithTTL[V any](ttl time.Duration) RedisOption[V] {
	return func(c *Redis[V]) { c.ttl = ttl }
}

// WithCodec replaces the default JSON codec.
func WithCodec[V any](codec Codec[V]) RedisOption[V] {
	return func(c *Redis[V]) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithRedisLogger sets the logger used for backend failures.
func WithRedisLogger[V any](l *slog.Logger) RedisOption[V] {
	return func(c *Redis[V]) {
		if l != nil {
			c.log = l
		}
	}
}

// NewRedis creates a cache storing entries under prefix + key.
func NewRedis[V any](client redis.UniversalClient, prefix string, opts ...RedisOption[V]) *Redis[V] {
	c := &Redis[V]{
		db:     client,
		prefix: prefix,
		codec:  JSONCodec[V]{},
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Redis[V]) Get(key string) (V, bool) {
	v, ok := c.lookup(key)
	if ok {
		c.hit()
	} else {
		c.miss()
	}
	return v, ok
}

func (c *Redis[V]) lookup(key string) (V, bool) {
	var zero V
	data, err := c.db.Get(context.Background(), c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("redis cache read failed", logger.Error(err))
		}
		return zero, false
	}
	v, err := c.codec.Unmarshal(data)
	if err != nil {
		c.log.Warn("redis cache entry undecodable", logger.Error(err))
		return zero, false
	}
	return v, true
}

func (c *Redis[V]) Put(key string, value V) {
	data, err := c.codec.Marshal(value)
	if err != nil {
		c.log.Warn("redis cache entry unencodable", logger.Error(err))
		return
	}
	if err := c.db.Set(context.Background(), c.prefix+key, data, c.ttl).Err(); err != nil {
		c.log.Warn("redis cache write failed", logger.Error(err))
	}
}

func (c *Redis[V]) GetOrLoad(key string, loader Loader[string, V]) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	if loader == nil {
		var zero V
		return zero, ErrNilLoader
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		v, err := loader(key)
		if err != nil {
			return nil, err
		}
		c.Put(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Len counts the keys under the prefix with SCAN. It returns 0 when Redis is
// unreachable.
func (c *Redis[V]) Len() int {
	n := 0
	iter := c.db.Scan(context.Background(), 0, c.prefix+"*", redisScanBatch).Iterator()
	for iter.Next(context.Background()) {
		n++
	}
	if err := iter.Err(); err != nil {
		c.log.Warn("redis cache scan failed", logger.Error(err))
		return 0
	}
	return n
}

// Reset deletes the keys under the prefix and zeroes the counters. Keys of
// other prefixes are left alone.
func (c *Redis[V]) Reset() {
	ctx := context.Background()
	iter := c.db.Scan(ctx, 0, c.prefix+"*", redisScanBatch).Iterator()
	batch := make([]string, 0, redisScanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == redisScanBatch {
			c.delete(ctx, batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		c.delete(ctx, batch)
	}
	if err := iter.Err(); err != nil {
		c.log.Warn("redis cache scan failed", logger.Error(err))
	}
	c.resetCounters()
}

func (c *Redis[V]) delete(ctx context.Context, keys []string) {
	if err := c.db.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("redis cache delete failed", logger.Error(err))
	}
}
