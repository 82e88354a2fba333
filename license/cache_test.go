package license

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, clock *testClock, ttl time.Duration) *Cache {
	t.Helper()
	c, err := NewCache(CacheConfig{TTL: ttl, MaxEntries: 100, Now: clock.Now})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func validated(t *testing.T, clock *testClock, tenant string, tier Tier, days int) *ValidatedEntitlement {
	t.Helper()
	gen, val := newPair(t, clock)
	ve, err := val.Validate(issue(t, gen, "ent-"+tenant, tenant, tier, days), tenant)
	require.NoError(t, err)
	return ve
}

func TestCacheTenantIsolation(t *testing.T) {
	clock := newClock()
	c := newTestCache(t, clock, time.Minute)

	a := validated(t, clock, "tenant-A", TierBasic, 30)
	b := validated(t, clock, "tenant-B", TierEnterprise, 30)
	require.True(t, c.Set("tenant-A", a))
	require.True(t, c.Set("tenant-B", b))

	got, ok := c.Get("tenant-A")
	require.True(t, ok)
	require.Equal(t, "tenant-A", got.TenantID)
	require.Equal(t, TierBasic, got.Tier)

	got, ok = c.Get("tenant-B")
	require.True(t, ok)
	require.Equal(t, TierEnterprise, got.Tier)

	_, ok = c.Get("tenant-C")
	require.False(t, ok)

	c.Invalidate("tenant-A")
	_, ok = c.Get("tenant-A")
	require.False(t, ok)
	_, ok = c.Get("tenant-B")
	require.True(t, ok)
}

func TestCacheTTL(t *testing.T) {
	clock := newClock()
	c := newTestCache(t, clock, time.Minute)
	require.True(t, c.Set("tenant-A", validated(t, clock, "tenant-A", TierBasic, 30)))

	clock.Advance(59 * time.Second)
	_, ok := c.Get("tenant-A")
	require.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("tenant-A")
	require.False(t, ok, "stale entries are a miss")
}

func TestCacheNeverOutlivesGrant(t *testing.T) {
	clock := newClock()
	c := newTestCache(t, clock, time.Hour)
	ve := validated(t, clock, "tenant-A", TierBasic, 1)

	clock.Advance(day - 10*time.Minute)
	require.True(t, c.Set("tenant-A", ve))

	clock.Advance(9 * time.Minute)
	_, ok := c.Get("tenant-A")
	require.True(t, ok)

	clock.Advance(time.Minute)
	_, ok = c.Get("tenant-A")
	require.False(t, ok)

	require.False(t, c.Set("tenant-A", ve), "lapsed grants are not cached")
}

func TestCacheRejectsEmpty(t *testing.T) {
	clock := newClock()
	c := newTestCache(t, clock, time.Minute)
	require.False(t, c.Set("", validated(t, clock, "tenant-A", TierBasic, 30)))
	require.False(t, c.Set("tenant-A", nil))
}

func TestCacheClear(t *testing.T) {
	clock := newClock()
	c := newTestCache(t, clock, time.Minute)
	for _, tenant := range []string{"t1", "t2", "t3"} {
		require.True(t, c.Set(tenant, validated(t, clock, tenant, TierBasic, 30)))
	}
	c.Clear()
	for _, tenant := range []string{"t1", "t2", "t3"} {
		_, ok := c.Get(tenant)
		require.False(t, ok, tenant)
	}
}
