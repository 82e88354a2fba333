package goEntitle

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goEntitle/session"
	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// envConfig mirrors the process environment.
type envConfig struct {
	AccessSecret    string        `env:"AUTH_ACCESS_SECRET"`
	RefreshSecret   string        `env:"AUTH_REFRESH_SECRET"`
	AccessTTL       time.Duration `env:"AUTH_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL      time.Duration `env:"AUTH_REFRESH_TTL" envDefault:"7d"`
	Issuer          string        `env:"AUTH_ISSUER"`
	Audience        string        `env:"AUTH_AUDIENCE"`
	LicenseSecret   string        `env:"LICENSE_SECRET"`
	MinSecretLength int           `env:"AUTH_MIN_SECRET_LENGTH" envDefault:"32"`
	AppEnv          string        `env:"APP_ENV" envDefault:"development"`
	CacheTTL        time.Duration `env:"ENTITLEMENT_CACHE_TTL" envDefault:"5m"`
	RedisAddr       string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
}

var envConfigOnce = sync.OnceValues(func() (Config, error) {
	return LoadEnvConfig()
})

// EnvConfig returns the environment configuration, loaded once per process.
func EnvConfig() (Config, error) {
	cfg, err := envConfigOnce()
	return cloneConfig(cfg), err
}

// LoadEnvConfig reads the process environment into a [Config].
//
// Durations are a whole number with one unit suffix: s, m, h or d ("15m",
// "7d"). Compound Go durations such as "1h30m" are rejected. Outside production,
// missing secrets are replaced with random per-process values and a warning
// is logged; tokens signed with them do not survive a restart. With
// APP_ENV=production nothing is generated and [Config.Validate] rejects
// absent or short secrets.
func LoadEnvConfig() (Config, error) {
	return loadEnvConfig(nil)
}

func loadEnvConfig(environ map[string]string) (Config, error) {
	var raw envConfig
	opts := env.Options{
		Environment: environ,
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(time.Duration(0)): func(v string) (any, error) {
				return session.ParseTTL(v)
			},
		},
	}
	if err := env.ParseWithOptions(&raw, opts); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	production := strings.EqualFold(raw.AppEnv, "production")
	if !production {
		var err error
		for _, s := range []struct {
			name  string
			value *string
		}{
			{"AUTH_ACCESS_SECRET", &raw.AccessSecret},
			{"AUTH_REFRESH_SECRET", &raw.RefreshSecret},
			{"LICENSE_SECRET", &raw.LicenseSecret},
		} {
			if *s.value != "" {
				continue
			}
			if *s.value, err = insecureSecret(); err != nil {
				return Config{}, err
			}
			log.Warn().Str("var", s.name).Msg("secret not set, using a random per-process value")
		}
	}

	cfg := defaultConfig()
	cfg.Session.AccessSecret = []byte(raw.AccessSecret)
	cfg.Session.RefreshSecret = []byte(raw.RefreshSecret)
	cfg.Session.AccessTTL = raw.AccessTTL
	cfg.Session.RefreshTTL = raw.RefreshTTL
	cfg.Session.Issuer = raw.Issuer
	cfg.Session.Audience = raw.Audience
	cfg.License.Secret = []byte(raw.LicenseSecret)
	cfg.Cache.TTL = raw.CacheTTL
	cfg.Security.ProductionMode = production
	cfg.Security.MinSecretLength = raw.MinSecretLength
	cfg.Redis = RedisConfig{
		Addr:     raw.RedisAddr,
		Password: raw.RedisPassword,
		DB:       raw.RedisDB,
	}
	return cfg, nil
}

func insecureSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewRedisClient dials the configured Redis server.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
