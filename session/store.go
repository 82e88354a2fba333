package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rotateStatusNotFound int64 = 0
	rotateStatusMismatch int64 = 1
	rotateStatusReused   int64 = 2
	rotateStatusRotated  int64 = 3
)

// KEYS[1] family hash, KEYS[2] subject index set.
// ARGV[1] subject, ARGV[2] presented token id, ARGV[3] next token id, ARGV[4] family id.
const rotateFamilyScript = `
local cur = redis.call("HMGET", KEYS[1], "sub", "jti")
if not cur[1] then
  return 0
end
if cur[1] ~= ARGV[1] then
  return 1
end
if cur[2] ~= ARGV[2] then
  redis.call("DEL", KEYS[1])
  redis.call("SREM", KEYS[2], ARGV[4])
  return 2
end
redis.call("HSET", KEYS[1], "jti", ARGV[3])
return 3
`

var rotateFamilyLua = redis.NewScript(rotateFamilyScript)

const revokeFamilyScript = `
local existed = redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
return existed
`

var revokeFamilyLua = redis.NewScript(revokeFamilyScript)

// FamilyStore records the latest refresh token id of every rotation family.
//
// Each family is a Redis hash holding its subject and current token id, with
// a TTL equal to the refresh lifetime. A per-subject set indexes the live
// families so logout can revoke all of them.
type FamilyStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewFamilyStore creates a [FamilyStore] under the given key prefix.
func NewFamilyStore(client redis.UniversalClient, prefix string) *FamilyStore {
	if prefix == "" {
		prefix = "ge"
	}
	return &FamilyStore{
		redis:  client,
		prefix: prefix,
	}
}

func (s *FamilyStore) familyKey(tenantID, familyID string) string {
	return s.prefix + ":rf:" + tenantID + ":" + familyID
}

func (s *FamilyStore) subjectKey(tenantID, subjectID string) string {
	return s.prefix + ":rfs:" + tenantID + ":" + subjectID
}

// Register starts a family with tokenID as its current refresh token.
//
//	Performance: one MULTI/EXEC with four commands.
func (s *FamilyStore) Register(ctx context.Context, tenantID, subjectID, familyID, tokenID string, ttl time.Duration) error {
	if tenantID == "" || subjectID == "" || familyID == "" || tokenID == "" {
		return ErrInvalidIdentity
	}
	famKey := s.familyKey(tenantID, familyID)
	subKey := s.subjectKey(tenantID, subjectID)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, famKey, "sub", subjectID, "jti", tokenID)
		pipe.PExpire(ctx, famKey, ttl)
		pipe.SAdd(ctx, subKey, familyID)
		pipe.PExpire(ctx, subKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Rotate replaces the family's current token id with nextID if presentedID
// is current. A superseded presentedID revokes the whole family and returns
// ErrFamilyReuse. The family TTL is not extended.
//
//	Performance: 1 Lua EVALSHA (atomic compare-and-swap).
//	Security: concurrent refreshes with the same token resolve to one winner;
//	the loser is treated as reuse.
func (s *FamilyStore) Rotate(ctx context.Context, grant *RefreshGrant, nextID string) error {
	if grant == nil || nextID == "" {
		return ErrInvalidIdentity
	}
	result, err := rotateFamilyLua.Run(
		ctx,
		s.redis,
		[]string{s.familyKey(grant.TenantID, grant.FamilyID), s.subjectKey(grant.TenantID, grant.SubjectID)},
		grant.SubjectID,
		grant.TokenID,
		nextID,
		grant.FamilyID,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch result {
	case rotateStatusRotated:
		return nil
	case rotateStatusReused:
		return ErrFamilyReuse
	case rotateStatusNotFound, rotateStatusMismatch:
		return ErrFamilyNotFound
	default:
		return fmt.Errorf("%w: unknown rotate status %d", ErrRedisUnavailable, result)
	}
}

// Current returns the family's subject and current token id.
func (s *FamilyStore) Current(ctx context.Context, tenantID, familyID string) (subjectID, tokenID string, err error) {
	vals, err := s.redis.HMGet(ctx, s.familyKey(tenantID, familyID), "sub", "jti").Result()
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	sub, _ := vals[0].(string)
	jti, _ := vals[1].(string)
	if sub == "" || jti == "" {
		return "", "", ErrFamilyNotFound
	}
	return sub, jti, nil
}

// Revoke deletes one family. Revoking an unknown family is not an error.
func (s *FamilyStore) Revoke(ctx context.Context, tenantID, subjectID, familyID string) error {
	_, err := revokeFamilyLua.Run(
		ctx,
		s.redis,
		[]string{s.familyKey(tenantID, familyID), s.subjectKey(tenantID, subjectID)},
		familyID,
	).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// RevokeAll deletes every family of a subject and returns the ids that were
// indexed, some of which may already have expired.
//
// Not atomic: a family registered between the read and the delete survives
// until its TTL or the next RevokeAll.
func (s *FamilyStore) RevokeAll(ctx context.Context, tenantID, subjectID string) ([]string, error) {
	subKey := s.subjectKey(tenantID, subjectID)
	families, err := s.redis.SMembers(ctx, subKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	keys := make([]string, 0, len(families)+1)
	for _, familyID := range families {
		keys = append(keys, s.familyKey(tenantID, familyID))
	}
	keys = append(keys, subKey)

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return families, nil
}

// ActiveFamilies lists the subject's families that have not expired.
func (s *FamilyStore) ActiveFamilies(ctx context.Context, tenantID, subjectID string) ([]string, error) {
	families, err := s.redis.SMembers(ctx, s.subjectKey(tenantID, subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(families) == 0 {
		return nil, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.IntCmd, len(families))
	for i, familyID := range families {
		cmds[i] = pipe.Exists(ctx, s.familyKey(tenantID, familyID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	live := make([]string, 0, len(families))
	for i, cmd := range cmds {
		if cmd.Val() == 1 {
			live = append(live, families[i])
		}
	}
	return live, nil
}

// Ping measures a Redis round trip.
func (s *FamilyStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
