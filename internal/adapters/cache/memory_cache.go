package cache

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mikey/llm-task-extractor/internal/core"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a cache entry is not found or has expired
	ErrNotFound = errors.New("cache entry not found")
)

// MemoryCache is an in-memory implementation of the ExtractionCache interface.
// Entries are bounded by maxEntries and evicted least-recently-used first.
type MemoryCache struct {
	entries *expirable.LRU[string, *core.CacheEntry]
	logger  *zap.Logger
	now     func() time.Time
}

// NewMemoryCache creates a new in-memory cache. ttl bounds how long the LRU
// keeps any entry; each entry's own ExpiresAt is checked on read as well.
func NewMemoryCache(logger *zap.Logger, maxEntries int, ttl time.Duration) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &MemoryCache{
		entries: expirable.NewLRU[string, *core.CacheEntry](maxEntries, nil, ttl),
		logger:  logger,
		now:     time.Now,
	}
}

// Get retrieves a live cache entry
func (c *MemoryCache) Get(_ context.Context, key string) (*core.CacheEntry, error) {
	entry, ok := c.entries.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	if !c.now().Before(entry.ExpiresAt) {
		c.entries.Remove(key)
		return nil, ErrNotFound
	}
	return entry, nil
}

// Set stores a cache entry
func (c *MemoryCache) Set(_ context.Context, entry *core.CacheEntry) error {
	if entry == nil || entry.Key == "" {
		return errors.New("cache entry requires a key")
	}
	c.entries.Add(entry.Key, entry)
	return nil
}

// Delete removes a cache entry
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.entries.Remove(key)
	return nil
}

// Cleanup removes entries whose own expiry has passed
func (c *MemoryCache) Cleanup(_ context.Context) error {
	now := c.now()
	expiredCount := 0

	for _, key := range c.entries.Keys() {
		entry, ok := c.entries.Peek(key)
		if ok && !now.Before(entry.ExpiresAt) {
			c.entries.Remove(key)
			expiredCount++
		}
	}

	c.logger.Debug("Cleaned up expired cache entries", zap.Int("expired_count", expiredCount))
	return nil
}

// Len reports the number of entries currently held
func (c *MemoryCache) Len() int {
	return c.entries.Len()
}

// Stop drops all entries
func (c *MemoryCache) Stop() {
	c.entries.Purge()
}

var _ core.ExtractionCache = (*MemoryCache)(nil)
