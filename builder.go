package goEntitle

import (
	"errors"
	"fmt"
	"time"

	internalaudit "github.com/MrEthical07/goEntitle/internal/audit"
	"github.com/MrEthical07/goEntitle/internal/rate"
	"github.com/MrEthical07/goEntitle/license"
	"github.com/MrEthical07/goEntitle/permission"
	"github.com/MrEthical07/goEntitle/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles an [Engine]. A builder can be used once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	logger zerolog.Logger
	now    func() time.Time

	permissions []string
	roles       map[string][]string

	identityProvider  IdentityProvider
	entitlementSource EntitlementSource
	auditSink         AuditSink

	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		logger: zerolog.Nop(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing refresh families, license storage and
// the refresh throttle. It is required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source for every token and cache decision.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithPermissions(perms []string) *Builder {
	b.permissions = perms
	return b
}

// WithRoles maps role names to permission names. Roles are expanded into an
// access token's permissions when the identity carries none of its own.
func (b *Builder) WithRoles(r map[string][]string) *Builder {
	b.roles = r
	return b
}

func (b *Builder) WithIdentityProvider(p IdentityProvider) *Builder {
	b.identityProvider = p
	return b
}

// WithEntitlementSource replaces the Redis license store as the read path
// for [Engine.Entitlement]. Issued entitlements are still written to Redis.
func (b *Builder) WithEntitlementSource(src EntitlementSource) *Builder {
	b.entitlementSource = src
	return b
}

// WithAuditSink sets where audit events go and enables auditing. Without a
// sink, enabled auditing writes through the engine's logger.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.identityProvider == nil {
		return nil, errors.New("identity provider required")
	}
	if len(b.roles) > 0 && len(b.permissions) == 0 {
		return nil, errors.New("roles require permissions")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- PERMISSION REGISTRY --------
	registry := permission.NewRegistry(true)
	for _, p := range b.permissions {
		if _, err := registry.Register(p); err != nil {
			return nil, fmt.Errorf("register permission %q: %w", p, err)
		}
	}
	registry.Freeze()

	// -------- ROLE MANAGER --------
	roleManager := permission.NewRoleManager(registry)
	for roleName, permList := range b.roles {
		if err := roleManager.RegisterRole(roleName, permList); err != nil {
			return nil, fmt.Errorf("register role %q: %w", roleName, err)
		}
	}
	roleManager.Freeze()

	// -------- SESSIONS --------
	sessions, err := session.NewService(session.Config{
		AccessSecret:  cfg.Session.AccessSecret,
		RefreshSecret: cfg.Session.RefreshSecret,
		AccessTTL:     cfg.Session.AccessTTL,
		RefreshTTL:    cfg.Session.RefreshTTL,
		Issuer:        cfg.Session.Issuer,
		Audience:      cfg.Session.Audience,
		ClockSkew:     cfg.Session.ClockSkew,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	// -------- ENTITLEMENTS --------
	revocations := license.NewRevocationList()
	licenseOpts := []license.Option{
		license.WithClock(now),
		license.WithIssuer(cfg.License.Issuer),
		license.WithSnapshotTTL(cfg.License.SnapshotTTL),
		license.WithRevoker(revocations),
	}
	generator, err := license.NewGenerator(cfg.License.Secret, licenseOpts...)
	if err != nil {
		return nil, err
	}
	validator, err := license.NewValidator(cfg.License.Secret, licenseOpts...)
	if err != nil {
		return nil, err
	}
	sealer, err := license.NewSealer(cfg.License.Secret)
	if err != nil {
		return nil, err
	}
	store := license.NewRedisStore(b.redis, cfg.License.RedisPrefix, sealer)

	cache, err := license.NewCache(license.CacheConfig{
		TTL:        cfg.Cache.TTL,
		MaxEntries: cfg.Cache.MaxEntries,
		Now:        now,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:      cfg,
		logger:      b.logger,
		now:         now,
		registry:    registry,
		roleManager: roleManager,
		sessions:    sessions,
		families:    session.NewFamilyStore(b.redis, cfg.Session.RedisPrefix),
		generator:   generator,
		validator:   validator,
		revocations: revocations,
		licenses:    store,
		source:      store,
		cache:       cache,
		identities:  b.identityProvider,
		metrics:     NewMetrics(cfg.Metrics),
	}
	if b.entitlementSource != nil {
		engine.source = b.entitlementSource
	}

	engine.limiter = rate.New(b.redis, rate.Config{
		Enabled:     cfg.Security.EnableRefreshThrottle,
		Prefix:      cfg.Session.RedisPrefix + ":ar",
		MaxAttempts: cfg.Security.MaxRefreshAttempts,
		Window:      cfg.Security.RefreshCooldown,
	})

	sink := b.auditSink
	if sink == nil {
		sink = internalaudit.NewLogSink(b.logger)
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	b.built = true

	return engine, nil
}
