package license

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each tenant's current license token in Redis, sealed with
// a [Sealer], plus the set of revoked entitlement ids.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	sealer *Sealer
}

// NewRedisStore creates a store under the given key prefix.
func NewRedisStore(client redis.UniversalClient, prefix string, sealer *Sealer) *RedisStore {
	if prefix == "" {
		prefix = "ge"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		sealer: sealer,
	}
}

func (s *RedisStore) tokenKey(tenantID string) string {
	return s.prefix + ":lic:" + tenantID
}

func (s *RedisStore) revokedKey() string {
	return s.prefix + ":lic:revoked"
}

// Put stores token as the tenant's license. ttl 0 keeps it until replaced.
func (s *RedisStore) Put(ctx context.Context, tenantID, token string, ttl time.Duration) error {
	if tenantID == "" || token == "" {
		return ErrInvalidOptions
	}
	sealed, err := s.sealer.Seal(tenantID, token)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.tokenKey(tenantID), sealed, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// LicenseToken returns the tenant's stored license token.
func (s *RedisStore) LicenseToken(ctx context.Context, tenantID string) (string, error) {
	sealed, err := s.redis.Get(ctx, s.tokenKey(tenantID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoEntitlement
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return s.sealer.Open(tenantID, sealed)
}

// Delete removes the tenant's license.
func (s *RedisStore) Delete(ctx context.Context, tenantID string) error {
	if err := s.redis.Del(ctx, s.tokenKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// MarkRevoked records entitlementID as revoked.
func (s *RedisStore) MarkRevoked(ctx context.Context, entitlementID string) error {
	if err := s.redis.SAdd(ctx, s.revokedKey(), entitlementID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// RevokedIDs lists every recorded revocation.
func (s *RedisStore) RevokedIDs(ctx context.Context) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.revokedKey()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}
