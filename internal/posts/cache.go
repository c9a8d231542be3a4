package posts

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultCacheTTL bounds how long a memoized listing is served.
	DefaultCacheTTL = 300 * time.Second
	// DefaultCacheSize bounds the number of entries kept in process.
	DefaultCacheSize = 1024

	listKey = "posts:list"
)

// ListCache memoizes post listings under a key.
type ListCache interface {
	Get(ctx context.Context, key string) ([]PostView, bool, error)
	Set(ctx context.Context, key string, views []PostView) error
	Invalidate(ctx context.Context) error
}

// RedisCache stores listings as JSON in Redis with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache wraps client. A non-positive ttl uses DefaultCacheTTL.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl, prefix: "posts:cache:"}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]PostView, bool, error) {
	payload, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var views []PostView
	if err := json.Unmarshal(payload, &views); err != nil {
		return nil, false, err
	}
	return views, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, views []PostView) error {
	raw, err := json.Marshal(views)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err()
}

// Invalidate drops every listing stored under the cache prefix.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

type cacheItem struct {
	views   []PostView
	expires time.Time
	added   uint64
}

// MemoryCache is an in-process ListCache bounded by TTL and entry count.
// When full, the oldest entry is evicted.
type MemoryCache struct {
	ttl     time.Duration
	size    int
	now     func() time.Time
	mu      sync.RWMutex
	items   map[string]cacheItem
	counter uint64
}

// NewMemoryCache builds a MemoryCache. Non-positive arguments use the defaults.
func NewMemoryCache(ttl time.Duration, size int) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &MemoryCache{
		ttl:   ttl,
		size:  size,
		now:   time.Now,
		items: make(map[string]cacheItem),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]PostView, bool, error) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(item.expires) {
		c.mu.Lock()
		if cur, ok := c.items[key]; ok && cur.added == item.added {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return cloneViews(item.views), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, views []PostView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[key]; !exists && len(c.items) >= c.size {
		c.evictOldest()
	}
	c.counter++
	c.items[key] = cacheItem{views: cloneViews(views), expires: c.now().Add(c.ttl), added: c.counter}
	return nil
}

func (c *MemoryCache) Invalidate(context.Context) error {
	c.mu.Lock()
	c.items = make(map[string]cacheItem)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) evictOldest() {
	var (
		oldestKey string
		oldest    uint64
		found     bool
	)
	for key, item := range c.items {
		if !found || item.added < oldest {
			oldestKey, oldest, found = key, item.added, true
		}
	}
	if found {
		delete(c.items, oldestKey)
	}
}

func (c *MemoryCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func cloneViews(src []PostView) []PostView {
	if src == nil {
		return nil
	}
	dst := make([]PostView, len(src))
	copy(dst, src)
	return dst
}

var (
	_ ListCache = (*RedisCache)(nil)
	_ ListCache = (*MemoryCache)(nil)
)
