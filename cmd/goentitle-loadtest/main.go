// Command goentitle-loadtest drives an engine with concurrent authenticate,
// entitlement and refresh traffic and prints latency percentiles.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	mrand "math/rand/v2"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goEntitle "github.com/MrEthical07/goEntitle"
	"github.com/MrEthical07/goEntitle/guard"
	"github.com/MrEthical07/goEntitle/license"
	"github.com/MrEthical07/goEntitle/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type sessionState struct {
	access  string
	refresh string
	tenant  string
	mu      sync.Mutex
}

func main() {
	var (
		sessions    = flag.Int("sessions", 10000, "number of sessions to seed")
		tenants     = flag.Int("tenants", 500, "number of tenants with entitlements")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *sessions <= 0 || *tenants <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, tenants, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer client.Close()

	engine, err := buildEngine(client)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d tenants and %d sessions...\n", *tenants, *sessions)
	startSeed := time.Now()
	tiers := license.Tiers
	for i := range *tenants {
		if _, err := engine.IssueEntitlement(ctx, license.Options{
			TenantID:     tenantID(i),
			Tier:         tiers[i%len(tiers)],
			DurationDays: 365,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "issue entitlement: %v\n", err)
			os.Exit(1)
		}
	}
	states := make([]sessionState, *sessions)
	for i := range states {
		tenant := tenantID(i % *tenants)
		pair, err := engine.IssueSession(ctx, session.IdentityClaims{
			SubjectID: fmt.Sprintf("user-%d", i),
			TenantID:  tenant,
			Role:      "member",
			Tier:      "basic",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue session: %v\n", err)
			os.Exit(1)
		}
		states[i] = sessionState{access: pair.AccessToken, refresh: pair.RefreshToken, tenant: tenant}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authStats := runPhase(*ops, *concurrency, func(r *mrand.Rand) error {
		_, err := engine.Authenticate(ctx, states[r.IntN(len(states))].access)
		return err
	})

	req := guard.Features(license.FeatureInvoicing)
	entitlementStats := runPhase(*ops, *concurrency, func(r *mrand.Rand) error {
		_, err := engine.Require(ctx, tenantID(r.IntN(*tenants)), req)
		return err
	})

	refreshStats := runPhase(*ops, *concurrency, func(r *mrand.Rand) error {
		state := &states[r.IntN(len(states))]
		state.mu.Lock()
		defer state.mu.Unlock()
		pair, err := engine.Refresh(ctx, state.refresh)
		if err != nil {
			return err
		}
		state.refresh = pair.RefreshToken
		state.access = pair.AccessToken
		return nil
	})

	fmt.Println("---- results ----")
	printStats("authenticate", authStats)
	printStats("entitlement", entitlementStats)
	printStats("refresh", refreshStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("entitlement cache: hits=%d misses=%d\n",
		snap.Counters[goEntitle.MetricEntitlementCacheHit],
		snap.Counters[goEntitle.MetricEntitlementCacheMiss])
}

func buildEngine(client redis.UniversalClient) (*goEntitle.Engine, error) {
	cfg := goEntitle.DefaultConfig()
	cfg.Session.AccessSecret = randomSecret()
	cfg.Session.RefreshSecret = randomSecret()
	cfg.License.Secret = randomSecret()
	// Every worker hammers the same families; the throttle would dominate.
	cfg.Security.EnableRefreshThrottle = false
	cfg.Cache.TTL = time.Hour

	return goEntitle.New().
		WithConfig(cfg).
		WithRedis(client).
		WithPermissions([]string{"invoice.read"}).
		WithRoles(map[string][]string{"member": {"invoice.read"}}).
		WithIdentityProvider(goEntitle.IdentityProviderFunc(
			func(_ context.Context, tenantID, subjectID string) (session.IdentityClaims, error) {
				return session.IdentityClaims{SubjectID: subjectID, TenantID: tenantID, Role: "member", Tier: "basic"}, nil
			})).
		Build()
}

func runPhase(ops, concurrency int, op func(r *mrand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    atomic.Int64
		failures  atomic.Int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := range concurrency {
		wg.Go(func() {
			r := mrand.New(mrand.NewPCG(uint64(time.Now().UnixNano()), uint64(w)*7919))
			local := make([]time.Duration, 0, ops/concurrency+1)
			for cursor.Add(1) <= int64(ops) {
				t0 := time.Now()
				if err := op(r); err != nil {
					failures.Add(1)
				}
				local = append(local, time.Since(t0))
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
		})
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures.Load())
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func tenantID(i int) string {
	return fmt.Sprintf("tenant-%d", i)
}

func randomSecret() []byte {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return b
}
