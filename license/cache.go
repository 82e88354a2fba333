package license

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// DefaultCacheTTL is how long a validated entitlement is served from cache.
const DefaultCacheTTL = 5 * time.Minute

// CacheConfig configures a [Cache].
type CacheConfig struct {
	TTL time.Duration
	// MaxEntries bounds the number of cached tenants.
	MaxEntries int64
	Now        func() time.Time
}

// Cache holds validated entitlements keyed by tenant id.
//
// The store is sharded so lookups for different tenants do not contend. An
// entry never outlives the grant it holds: its expiry is the earlier of the
// cache TTL and the grant's own expiry. A stale or missing entry is a plain
// miss, never an error.
type Cache struct {
	entries *ristretto.Cache[string, *cacheEntry]
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	ve        *ValidatedEntitlement
	expiresAt time.Time
}

// NewCache builds a tenant cache.
func NewCache(cfg CacheConfig) (*Cache, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10_000
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	entries, err := ristretto.NewCache(&ristretto.Config[string, *cacheEntry]{
		NumCounters:        cfg.MaxEntries * 10,
		MaxCost:            cfg.MaxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize entitlement cache: %w", err)
	}

	return &Cache{
		entries: entries,
		ttl:     cfg.TTL,
		now:     cfg.Now,
	}, nil
}

// Get returns the tenant's entitlement if cached and unexpired.
func (c *Cache) Get(tenantID string) (*ValidatedEntitlement, bool) {
	entry, ok := c.entries.Get(tenantID)
	if !ok || entry == nil {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.entries.Del(tenantID)
		return nil, false
	}
	return entry.ve, true
}

// Set caches ve for tenantID. It reports false when the entry was not
// stored: the grant already lapsed or the admission policy rejected it.
func (c *Cache) Set(tenantID string, ve *ValidatedEntitlement) bool {
	if ve == nil || tenantID == "" {
		return false
	}
	now := c.now()
	expiresAt := now.Add(c.ttl)
	if ve.ExpiresAt.Before(expiresAt) {
		expiresAt = ve.ExpiresAt
	}
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return false
	}

	stored := c.entries.SetWithTTL(tenantID, &cacheEntry{ve: ve, expiresAt: expiresAt}, 1, ttl)
	// Sets are buffered; wait so the entry is visible to the next Get.
	c.entries.Wait()
	return stored
}

// Invalidate drops the tenant's entry.
func (c *Cache) Invalidate(tenantID string) {
	c.entries.Del(tenantID)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.entries.Clear()
}

// Close releases the cache's background goroutines.
func (c *Cache) Close() {
	c.entries.Close()
}
