package goEntitle

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goEntitle/license"
)

// Config is the full engine configuration. Start from [DefaultConfig] or
// [LoadEnvConfig] and adjust; [Builder.Build] validates it.
type Config struct {
	Session  SessionConfig
	License  LicenseConfig
	Cache    CacheConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Redis    RedisConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig configures session tokens and refresh families.
type SessionConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	// ClockSkew tolerates issuers whose clock runs slightly ahead.
	ClockSkew   time.Duration
	RedisPrefix string
}

/*
====================================
LICENSE CONFIG
====================================
*/

// LicenseConfig configures entitlement tokens and their storage.
type LicenseConfig struct {
	Secret []byte
	Issuer string
	// SnapshotTTL bounds reuse of the validator's last result.
	SnapshotTTL time.Duration
	RedisPrefix string
	// StoreTTL expires stored tokens; zero keeps them until replaced.
	StoreTTL time.Duration
}

// CacheConfig configures the per-tenant entitlement cache.
type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int64
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig hardens secrets and throttles refresh.
type SecurityConfig struct {
	ProductionMode bool
	// MinSecretLength raises the secret length enforced in production mode.
	// Production never accepts fewer than 32 bytes.
	MinSecretLength       int
	EnableRefreshThrottle bool
	MaxRefreshAttempts    int
	RefreshCooldown       time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// RedisConfig is only used by callers that let the engine dial Redis
// themselves, see [NewRedisClient].
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns a config with every non-secret field set.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			AccessTTL:   15 * time.Minute,
			RefreshTTL:  7 * 24 * time.Hour,
			ClockSkew:   30 * time.Second,
			RedisPrefix: "ge",
		},
		License: LicenseConfig{
			SnapshotTTL: license.DefaultSnapshotTTL,
			RedisPrefix: "ge",
		},
		Cache: CacheConfig{
			TTL:        license.DefaultCacheTTL,
			MaxEntries: 10_000,
		},
		Security: SecurityConfig{
			MinSecretLength:       32,
			EnableRefreshThrottle: true,
			MaxRefreshAttempts:    20,
			RefreshCooldown:       time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.AccessSecret = cloneBytes(cfg.Session.AccessSecret)
	out.Session.RefreshSecret = cloneBytes(cfg.Session.RefreshSecret)
	out.License.Secret = cloneBytes(cfg.License.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return bytes.Clone(b)
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first problem that would make the engine unsafe or
// unusable. Production mode additionally enforces secret length.
func (c *Config) Validate() error {
	// Session
	if len(c.Session.AccessSecret) == 0 {
		return errors.New("Session AccessSecret is required")
	}
	if len(c.Session.RefreshSecret) == 0 {
		return errors.New("Session RefreshSecret is required")
	}
	if bytes.Equal(c.Session.AccessSecret, c.Session.RefreshSecret) {
		return errors.New("Session AccessSecret and RefreshSecret must differ")
	}
	if c.Session.AccessTTL <= 0 {
		return errors.New("Session AccessTTL must be > 0")
	}
	if c.Session.RefreshTTL <= 0 {
		return errors.New("Session RefreshTTL must be > 0")
	}
	if c.Session.RefreshTTL <= c.Session.AccessTTL {
		return errors.New("Session RefreshTTL must be > AccessTTL")
	}
	if c.Session.ClockSkew < 0 {
		return errors.New("Session ClockSkew must be >= 0")
	}

	// License
	if len(c.License.Secret) == 0 {
		return errors.New("License Secret is required")
	}
	if c.License.SnapshotTTL < 0 {
		return errors.New("License SnapshotTTL must be >= 0")
	}
	if c.License.StoreTTL < 0 {
		return errors.New("License StoreTTL must be >= 0")
	}

	// Cache
	if c.Cache.TTL <= 0 {
		return errors.New("Cache TTL must be > 0")
	}
	if c.Cache.MaxEntries <= 0 {
		return errors.New("Cache MaxEntries must be > 0")
	}

	// Security
	if c.Security.MinSecretLength < 0 {
		return errors.New("Security MinSecretLength must be >= 0")
	}
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 {
			return errors.New("Security MaxRefreshAttempts must be > 0 when refresh throttle is enabled")
		}
		if c.Security.RefreshCooldown <= 0 {
			return errors.New("Security RefreshCooldown must be > 0 when refresh throttle is enabled")
		}
	}
	if c.Security.ProductionMode {
		if err := c.validateProduction(); err != nil {
			return err
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}

// productionSecretFloor is the shortest secret production accepts, whatever
// MinSecretLength says.
const productionSecretFloor = 32

func (c *Config) validateProduction() error {
	minLen := max(c.Security.MinSecretLength, productionSecretFloor)
	secrets := []struct {
		name  string
		value []byte
	}{
		{"Session AccessSecret", c.Session.AccessSecret},
		{"Session RefreshSecret", c.Session.RefreshSecret},
		{"License Secret", c.License.Secret},
	}
	for _, s := range secrets {
		if len(s.value) < minLen {
			return fmt.Errorf("%s must be at least %d bytes in production", s.name, minLen)
		}
	}
	if bytes.Equal(c.License.Secret, c.Session.AccessSecret) || bytes.Equal(c.License.Secret, c.Session.RefreshSecret) {
		return errors.New("License Secret must differ from session secrets in production")
	}
	if !c.Security.EnableRefreshThrottle {
		return errors.New("Security EnableRefreshThrottle must be true in production")
	}
	return nil
}
