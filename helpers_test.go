package goEntitle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goEntitle/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var errUnknownSubject = errors.New("unknown subject")

type testClock struct {
	nanos atomic.Int64
}

func newTestClock() *testClock {
	c := &testClock{}
	c.nanos.Store(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC).UnixNano())
	return c
}

func (c *testClock) Now() time.Time { return time.Unix(0, c.nanos.Load()).UTC() }

func (c *testClock) Advance(d time.Duration) { c.nanos.Add(int64(d)) }

// memIdentities is an in-memory IdentityProvider keyed by tenant/subject.
type memIdentities struct {
	mu sync.RWMutex
	m  map[string]session.IdentityClaims
}

func (p *memIdentities) put(c session.IdentityClaims) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[c.TenantID+"/"+c.SubjectID] = c
}

func (p *memIdentities) remove(tenantID, subjectID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.m, tenantID+"/"+subjectID)
}

func (p *memIdentities) LoadIdentity(_ context.Context, tenantID, subjectID string) (session.IdentityClaims, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.m[tenantID+"/"+subjectID]
	if !ok {
		return session.IdentityClaims{}, errUnknownSubject
	}
	return c, nil
}

type harness struct {
	engine     *Engine
	mr         *miniredis.Miniredis
	rdb        *redis.Client
	clock      *testClock
	identities *memIdentities
	sink       *ChannelSink
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Session.AccessSecret = []byte("access-secret-0123456789-abcdefghij")
	cfg.Session.RefreshSecret = []byte("refresh-secret-0123456789-abcdefghi")
	cfg.Session.Issuer = "goentitle-test"
	cfg.License.Secret = []byte("license-secret-0123456789-abcdefghi")
	return cfg
}

type harnessOption func(*Builder)

func newHarness(tb testing.TB, opts ...harnessOption) *harness {
	tb.Helper()
	mr := miniredis.RunT(tb)
	return newHarnessOn(tb, mr, opts...)
}

// newHarnessOn builds an engine on an existing server, modelling a second
// process sharing the same Redis.
func newHarnessOn(tb testing.TB, mr *miniredis.Miniredis, opts ...harnessOption) *harness {
	tb.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tb.Cleanup(func() { _ = rdb.Close() })

	h := &harness{
		mr:         mr,
		rdb:        rdb,
		clock:      newTestClock(),
		identities: &memIdentities{m: map[string]session.IdentityClaims{}},
		sink:       NewChannelSink(1024),
	}

	b := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithClock(h.clock.Now).
		WithIdentityProvider(h.identities).
		WithAuditSink(h.sink).
		WithPermissions([]string{"invoice.read", "invoice.write", "stock.read", "stock.adjust"}).
		WithRoles(map[string][]string{
			"clerk":   {"invoice.read", "stock.read"},
			"manager": {"invoice.read", "invoice.write", "stock.read", "stock.adjust"},
			"owner":   {"*"},
		})
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	require.NoError(tb, err)
	tb.Cleanup(engine.Close)
	h.engine = engine
	return h
}

// identity registers a clerk with the provider and returns its claims.
func (h *harness) identity(subjectID, tenantID string) session.IdentityClaims {
	c := session.IdentityClaims{
		SubjectID: subjectID,
		TenantID:  tenantID,
		Email:     subjectID + "@example.com",
		Role:      "clerk",
		Tier:      "basic",
	}
	h.identities.put(c)
	return c
}

// waitAudit returns the next audit event of the given type.
func (h *harness) waitAudit(t *testing.T, eventType string) AuditEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-h.sink.Events():
			if ev.EventType == eventType {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %q audit event", eventType)
			return AuditEvent{}
		}
	}
}
