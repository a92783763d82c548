package refresh

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"stockpulse/internal/domain"
)

// CacheEntry is a finished category result set with its write timestamp.
type CacheEntry struct {
	Data     []domain.StockMetadata `json:"data"`
	CachedAt time.Time              `json:"cachedAt"`
}

// FreshnessCache is a two-tier cache for finalized category datasets: an
// in-process map consulted first, over categories.json files that survive
// restarts. An entry is fresh while its age is under the TTL, or while it
// was written on the current calendar date, whichever is more generous.
type FreshnessCache struct {
	mu   sync.RWMutex
	mem  map[string]CacheEntry
	root string
	ttl  time.Duration
}

// NewFreshnessCache creates a cache rooted at the given data directory.
func NewFreshnessCache(root string, ttl time.Duration) *FreshnessCache {
	return &FreshnessCache{
		mem:  make(map[string]CacheEntry),
		root: root,
		ttl:  ttl,
	}
}

func (c *FreshnessCache) path(key string) string {
	return filepath.Join(c.root, key, "categories", "categories.json")
}

func (c *FreshnessCache) fresh(e CacheEntry, now time.Time) bool {
	if e.CachedAt.IsZero() {
		return false
	}
	if now.Sub(e.CachedAt) < c.ttl {
		return true
	}
	return e.CachedAt.Format("2006-01-02") == now.Format("2006-01-02")
}

// Get returns the dataset's cached result if a fresh entry exists in either
// tier. A disk hit is promoted into the in-process tier.
func (c *FreshnessCache) Get(key string) ([]domain.StockMetadata, bool) {
	now := time.Now()

	c.mu.RLock()
	e, ok := c.mem[key]
	c.mu.RUnlock()
	if ok && c.fresh(e, now) {
		return e.Data, true
	}

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var disk CacheEntry
	if err := json.Unmarshal(data, &disk); err != nil {
		// Corrupt cache file counts as a miss; the next Put rewrites it.
		return nil, false
	}
	if !c.fresh(disk, now) {
		return nil, false
	}

	c.mu.Lock()
	c.mem[key] = disk
	c.mu.Unlock()
	return disk.Data, true
}

// Put records the dataset's finished result in both tiers with cachedAt=now.
// The tiers are not updated atomically; the disk layer is the source of
// truth on cold start.
func (c *FreshnessCache) Put(key string, data []domain.StockMetadata) error {
	e := CacheEntry{Data: data, CachedAt: time.Now()}

	c.mu.Lock()
	c.mem[key] = e
	c.mu.Unlock()

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	raw, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling cache entry: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing cache entry: %w", err)
	}
	return nil
}
