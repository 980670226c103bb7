// Package stimuluscache keeps recently served stimulus audio close to the API
// so repeated plays of the same sentence do not hit object storage.
package stimuluscache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Entry is one cached object.
type Entry struct {
	Body        []byte
	ContentType string
	ETag        string
}

type Cache interface {
	Get(ctx context.Context, key string) (*Entry, bool, error)
	Set(ctx context.Context, key string, e *Entry) error
	Delete(ctx context.Context, key string) error
}

const keyPrefix = "studyflow:stimulus:"

type redisCache struct {
	rdb goredis.UniversalClient
	ttl time.Duration
}

// NewRedis stores entries as hashes that expire after ttl.
func NewRedis(rdb goredis.UniversalClient, ttl time.Duration) Cache {
	return &redisCache{rdb: rdb, ttl: ttl}
}

func (c *redisCache) Get(ctx context.Context, key string) (*Entry, bool, error) {
	vals, err := c.rdb.HGetAll(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis hgetall: %w", err)
	}
	body, ok := vals["body"]
	if !ok {
		return nil, false, nil
	}
	return &Entry{Body: []byte(body), ContentType: vals["content_type"], ETag: vals["etag"]}, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, e *Entry) error {
	k := keyPrefix + key
	_, err := c.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSet(ctx, k, "body", e.Body, "content_type", e.ContentType, "etag", e.ETag)
		p.Expire(ctx, k, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, keyPrefix+key).Err()
}

type memEntry struct {
	entry   *Entry
	expires time.Time
}

type memoryCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	items      map[string]memEntry
	now        func() time.Time
}

// NewMemory is the single-process fallback. When full, expired entries are
// dropped first, then an arbitrary entry.
func NewMemory(ttl time.Duration, maxEntries int) Cache {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &memoryCache{ttl: ttl, maxEntries: maxEntries, items: map[string]memEntry{}, now: time.Now}
}

func (c *memoryCache) Get(_ context.Context, key string) (*Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(it.expires) {
		delete(c.items, key)
		return nil, false, nil
	}
	return it.entry, true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, e *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxEntries {
		for k, it := range c.items {
			if !now.Before(it.expires) {
				delete(c.items, k)
			}
		}
		for k := range c.items {
			if len(c.items) < c.maxEntries {
				break
			}
			delete(c.items, k)
		}
	}
	c.items[key] = memEntry{entry: e, expires: now.Add(c.ttl)}
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}
