package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"georecon/internal/types"
)

// Entry represents a cached reconnaissance report
type Entry struct {
	Report    *types.Report
	ExpiresAt time.Time
}

// ReportCache provides in-memory TTL caching of assembled reports so that
// repeated serve-mode requests do not re-run the external lookups. Reports
// never outlive the process.
type ReportCache struct {
	cache      map[string]*Entry
	mu         sync.RWMutex
	ttl        time.Duration
	maxEntries int
	logger     *logrus.Logger
	// Statistics
	hits      int64
	misses    int64
	evictions int64
	// Control
	stopCh chan struct{}
}

// NewReportCache creates a report cache with the given TTL and max entries
func NewReportCache(ttl time.Duration, maxEntries int, logger *logrus.Logger) *ReportCache {
	c := &ReportCache{
		cache:      make(map[string]*Entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}

	go c.cleanup()

	return c
}

// NewReportCacheNoCleanup creates a cache without the cleanup goroutine (for testing)
func NewReportCacheNoCleanup(ttl time.Duration, maxEntries int, logger *logrus.Logger) *ReportCache {
	return &ReportCache{
		cache:      make(map[string]*Entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
}

// Get retrieves a cached report for the given target key
func (c *ReportCache) Get(target string) (*types.Report, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.cache[target]
	if !exists {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	if time.Now().After(entry.ExpiresAt) {
		atomic.AddInt64(&c.misses, 1)
		// Don't delete here, let cleanup handle it
		return nil, false
	}

	atomic.AddInt64(&c.hits, 1)
	return entry.Report, true
}

// Set stores a report in the cache
func (c *ReportCache) Set(target string, report *types.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cache) >= c.maxEntries {
		c.evictOldest()
	}

	c.cache[target] = &Entry{
		Report:    report,
		ExpiresAt: time.Now().Add(c.ttl),
	}
}

// evictOldest removes the entries closest to expiry when the cache is full
func (c *ReportCache) evictOldest() {
	if len(c.cache) == 0 {
		return
	}

	evictCount := c.maxEntries / 10
	if evictCount < 1 {
		evictCount = 1
	}

	type entryWithKey struct {
		key       string
		expiresAt time.Time
	}

	var entries []entryWithKey
	for key, entry := range c.cache {
		entries = append(entries, entryWithKey{key: key, expiresAt: entry.ExpiresAt})
	}

	for i := 0; i < len(entries)-1; i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[i].expiresAt.After(entries[j].expiresAt) {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}

	for i := 0; i < evictCount && i < len(entries); i++ {
		delete(c.cache, entries[i].key)
		atomic.AddInt64(&c.evictions, 1)
	}
}

// cleanup removes expired entries periodically
func (c *ReportCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *ReportCache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var expired []string

	for key, entry := range c.cache {
		if now.After(entry.ExpiresAt) {
			expired = append(expired, key)
		}
	}

	for _, key := range expired {
		delete(c.cache, key)
	}

	if len(expired) > 0 {
		c.logger.Debugf("Cleaned up %d expired report cache entries", len(expired))
	}
}

// GetStats returns cache statistics
func (c *ReportCache) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	evictions := atomic.LoadInt64(&c.evictions)

	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return map[string]interface{}{
		"entries":     len(c.cache),
		"hits":        hits,
		"misses":      misses,
		"evictions":   evictions,
		"hit_rate":    hitRate,
		"ttl_seconds": c.ttl.Seconds(),
		"max_entries": c.maxEntries,
	}
}

// Clear removes all entries from the cache
func (c *ReportCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]*Entry)
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
	atomic.StoreInt64(&c.evictions, 0)

	c.logger.Info("Report cache cleared")
}

// Size returns the current number of entries in the cache
func (c *ReportCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Close stops the cleanup goroutine
func (c *ReportCache) Close() {
	if c.stopCh != nil {
		select {
		case <-c.stopCh:
			// Already closed
			return
		default:
			close(c.stopCh)
		}
	}
}
