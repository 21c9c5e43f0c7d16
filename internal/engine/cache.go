package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Cache provides 2-tier caching of transcript results: L1 in-memory + optional L2 Store.
// L1 is fast but lost on restart. L2 survives restarts and is shared between instances.
//
// There is no cross-request locking: concurrent writers for the same video race and the
// last write wins.
type Cache struct {
	l1              sync.Map // key → *cacheEntry
	l2              Store    // nil = L1 only
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	now             func() time.Time
	stop            chan struct{}
	stopOnce        sync.Once
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewCache sets up the 2-tier cache and starts the L1 cleanup goroutine.
// l2 can be nil to disable the second tier.
func NewCache(l2 Store, ttl time.Duration, maxEntries int, cleanupInterval time.Duration) *Cache {
	c := &Cache{
		l2:              l2,
		ttl:             ttl,
		maxEntries:      maxEntries,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
		stop:            make(chan struct{}),
	}
	slog.Info("cache: initialized", slog.Duration("ttl", ttl), slog.Bool("l2", l2 != nil), slog.Int("max_entries", maxEntries))

	go c.cleanupLoop()
	return c
}

// CacheKey builds the storage key for a video.
func CacheKey(id VideoID) string {
	return "youtube-transcript-" + string(id)
}

// Get tries L1, then L2. On L2 hit, populates L1.
// Stored values that fail validation are treated as misses.
func (c *Cache) Get(ctx context.Context, id VideoID) (TranscriptResult, bool) {
	if c == nil {
		metrics.CacheMisses.Add(1)
		return TranscriptResult{}, false
	}
	key := CacheKey(id)

	// L1 check
	if val, ok := c.l1.Load(key); ok {
		entry := val.(*cacheEntry)
		if c.now().Before(entry.expiresAt) {
			if out, ok := decodeResult(entry.data); ok {
				slog.Debug("cache: L1 hit", slog.String("key", key))
				metrics.CacheHits.Add(1)
				return out, true
			}
		}
		c.l1.Delete(key) // expired or corrupt
	}

	// L2 check
	if c.l2 != nil {
		data, remaining, err := c.l2.Get(ctx, key)
		switch {
		case err == nil:
			if out, ok := decodeResult(data); ok {
				slog.Debug("cache: L2 hit", slog.String("key", key), slog.Duration("remaining", remaining))
				metrics.CacheHits.Add(1)
				c.storeL1(key, data, remaining)
				return out, true
			}
			slog.Debug("cache: L2 value failed validation", slog.String("key", key))
		case !errors.Is(err, ErrCacheMiss):
			slog.Warn("cache: L2 get failed", slog.String("key", key), slog.Any("error", err))
		}
	}

	metrics.CacheMisses.Add(1)
	return TranscriptResult{}, false
}

// Set stores value in both L1 and L2. Invalid results are never stored.
func (c *Cache) Set(ctx context.Context, id VideoID, value TranscriptResult) {
	if c == nil || !value.Valid() {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	key := CacheKey(id)

	c.evictIfNeeded()
	c.storeL1(key, data, c.ttl)

	if c.l2 != nil {
		if err := c.l2.Set(ctx, key, data, c.ttl); err != nil {
			slog.Warn("cache: L2 set failed", slog.String("key", key), slog.Any("error", err))
		}
	}
}

// Close stops the cleanup loop and releases the L2 store.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	c.stopOnce.Do(func() { close(c.stop) })
	if c.l2 != nil {
		return c.l2.Close()
	}
	return nil
}

// storeL1 keeps data for at most the cache TTL. Entries copied from L2 keep the expiry
// they were written with, so a read never extends an entry's life.
func (c *Cache) storeL1(key string, data []byte, remaining time.Duration) {
	if remaining <= 0 || remaining > c.ttl {
		remaining = c.ttl
	}
	c.l1.Store(key, &cacheEntry{
		data:      data,
		expiresAt: c.now().Add(remaining),
	})
}

// decodeResult is the schema check applied to every stored value before it is trusted.
func decodeResult(data []byte) (TranscriptResult, bool) {
	var out TranscriptResult
	if err := json.Unmarshal(data, &out); err != nil {
		return TranscriptResult{}, false
	}
	if !out.Valid() {
		return TranscriptResult{}, false
	}
	return out, true
}

// evictIfNeeded removes entries when L1 exceeds maxEntries.
// Removes expired entries first, then oldest entries if still over limit.
func (c *Cache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}

	count := 0
	c.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count < c.maxEntries {
		return
	}

	// Phase 1: remove expired
	now := c.now()
	c.l1.Range(func(key, val any) bool {
		if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
			c.l1.Delete(key)
			count--
		}
		return count >= c.maxEntries
	})
	if count < c.maxEntries {
		return
	}

	// Phase 2: remove oldest entries until under limit
	for count >= c.maxEntries {
		var oldestKey any
		oldestAt := now.Add(c.ttl + time.Hour)
		c.l1.Range(func(key, val any) bool {
			// Earlier expiry = older entry (since expiry = createdAt + ttl)
			if entry, ok := val.(*cacheEntry); ok && entry.expiresAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = entry.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			break
		}
		c.l1.Delete(oldestKey)
		count--
	}
}

// cleanupLoop periodically removes expired L1 entries.
func (c *Cache) cleanupLoop() {
	interval := c.cleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := c.now()
			c.l1.Range(func(key, val any) bool {
				if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
					c.l1.Delete(key)
				}
				return true
			})
			c.purgeL2()
		}
	}
}

func (c *Cache) purgeL2() {
	p, ok := c.l2.(expiredPurger)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := p.PurgeExpired(ctx)
	if err != nil {
		slog.Warn("cache: L2 purge failed", slog.Any("error", err))
		return
	}
	if n > 0 {
		slog.Debug("cache: L2 purged expired entries", slog.Int64("count", n))
	}
}
