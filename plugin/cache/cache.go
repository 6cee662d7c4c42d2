// Package cache provides a small in-process LRU cache with TTL, used to
// memoize embedding lookups so repeated queries skip the provider round
// trip.
package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

// Service is the cache interface consumed by the embedding layer.
type Service interface {
	// Get retrieves a value and reports whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value with the given TTL. A non-positive TTL uses
	// the configured default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate removes entries; patterns may end with a * wildcard.
	Invalidate(ctx context.Context, pattern string) error
}

// Config configures an LRU cache.
type Config struct {
	Capacity        int
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig returns sizing suitable for a personal instance.
func DefaultConfig() Config {
	return Config{
		Capacity:        1000,
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: time.Minute,
	}
}

type lruEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
	element   *list.Element
}

// LRU implements Service with LRU eviction and background expiry.
type LRU struct {
	mu      sync.Mutex
	entries map[string]*lruEntry
	order   *list.List

	capacity   int
	defaultTTL time.Duration

	done chan struct{}
	once sync.Once
}

// NewLRU creates a cache and starts its cleanup loop.
func NewLRU(cfg Config) *LRU {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1000
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 10 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	c := &LRU{
		entries:    make(map[string]*lruEntry),
		order:      list.New(),
		capacity:   cfg.Capacity,
		defaultTTL: cfg.DefaultTTL,
		done:       make(chan struct{}),
	}
	go c.cleanupLoop(cfg.CleanupInterval)
	return c
}

// Close stops the cleanup loop.
func (c *LRU) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *LRU) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.remove(e)
		return nil, false
	}
	c.order.MoveToFront(e.element)
	return e.value, true
}

func (c *LRU) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = time.Now().Add(ttl)
		c.order.MoveToFront(e.element)
		return nil
	}

	for len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest.Value.(*lruEntry))
	}

	e := &lruEntry{key: key, value: value, expiresAt: time.Now().Add(ttl)}
	e.element = c.order.PushFront(e)
	c.entries[key] = e
	return nil
}

func (c *LRU) Invalidate(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !strings.HasSuffix(pattern, "*") {
		if e, ok := c.entries[pattern]; ok {
			c.remove(e)
		}
		return nil
	}

	prefix := strings.TrimSuffix(pattern, "*")
	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.remove(e)
		}
	}
	return nil
}

// Size returns the number of live entries.
func (c *LRU) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// remove must be called with the lock held.
func (c *LRU) remove(e *lruEntry) {
	c.order.Remove(e.element)
	delete(c.entries, e.key)
}

func (c *LRU) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.evictExpired()
		case <-c.done:
			return
		}
	}
}

func (c *LRU) evictExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if now.After(e.expiresAt) {
			c.remove(e)
		}
	}
}
