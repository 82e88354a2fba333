package goEntitle

import (
	"context"
	"net"
	"sync/atomic"
	"testing"

	"github.com/MrEthical07/goEntitle/guard"
	"github.com/MrEthical07/goEntitle/license"
	"github.com/MrEthical07/goEntitle/session"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// tripCounter is a go-redis hook counting network round trips: one per
// command, one per pipeline regardless of its length.
type tripCounter struct {
	trips atomic.Int64
}

func (c *tripCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (c *tripCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		c.trips.Add(1)
		return next(ctx, cmd)
	}
}

func (c *tripCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		c.trips.Add(1)
		return next(ctx, cmds)
	}
}

// measure returns the round trips fn made.
func (c *tripCounter) measure(fn func()) int64 {
	c.trips.Store(0)
	fn()
	return c.trips.Load()
}

func newCountedHarness(t *testing.T) (*harness, *tripCounter) {
	t.Helper()
	h := newHarness(t)
	counter := &tripCounter{}
	// Warm the connection so handshake commands are not counted.
	require.NoError(t, h.rdb.Ping(context.Background()).Err())
	h.rdb.AddHook(counter)
	return h, counter
}

func TestAuthenticateMakesNoRedisCalls(t *testing.T) {
	h, counter := newCountedHarness(t)
	pair, err := h.engine.IssueSession(context.Background(), h.identity("u-1", "acme"))
	require.NoError(t, err)

	trips := counter.measure(func() {
		_, err = h.engine.Authenticate(context.Background(), pair.AccessToken)
	})
	require.NoError(t, err)
	require.Zero(t, trips)
}

func TestSessionRedisBudget(t *testing.T) {
	h, counter := newCountedHarness(t)
	ctx := context.Background()
	claims := h.identity("u-1", "acme")

	var (
		pair, next session.TokenPair
		err        error
	)

	trips := counter.measure(func() {
		pair, err = h.engine.IssueSession(ctx, claims)
	})
	require.NoError(t, err)
	require.LessOrEqual(t, trips, int64(1), "family registration is one transaction")

	// Throttle INCR and EXPIRE, then the rotation script. A cold script
	// cache adds an EVAL after the EVALSHA miss.
	trips = counter.measure(func() {
		next, err = h.engine.Refresh(ctx, pair.RefreshToken)
	})
	require.NoError(t, err)
	require.LessOrEqual(t, trips, int64(4))

	trips = counter.measure(func() {
		_, err = h.engine.Refresh(ctx, next.RefreshToken)
	})
	require.NoError(t, err)
	require.LessOrEqual(t, trips, int64(2), "warm script and existing throttle window")
}

func TestEntitlementRedisBudget(t *testing.T) {
	h, counter := newCountedHarness(t)
	ctx := context.Background()
	_, err := h.engine.IssueEntitlement(ctx, license.Options{
		TenantID:     "acme",
		Tier:         license.TierProfessional,
		DurationDays: 365,
	})
	require.NoError(t, err)

	miss := counter.measure(func() {
		_, err = h.engine.Entitlement(ctx, "acme")
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), miss)

	hit := counter.measure(func() {
		_, err = h.engine.Require(ctx, "acme", guard.Tier(license.TierProfessional))
	})
	require.NoError(t, err)
	require.Zero(t, hit)
}
