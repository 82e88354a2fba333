package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T) (*Service, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	svc, err := NewService(Config{
		AccessSecret:  []byte("access-secret-access-secret-0001"),
		RefreshSecret: []byte("refresh-secret-refresh-secret-01"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "goentitle",
		Audience:      "erp",
		Now:           clock.Now,
	})
	require.NoError(t, err)
	return svc, clock
}

func testIdentity() IdentityClaims {
	return IdentityClaims{
		SubjectID:   "user-1",
		TenantID:    "tenant-1",
		Email:       "owner@example.com",
		Role:        "admin",
		Tier:        "professional",
		Permissions: []string{"invoice.read", "invoice.write"},
	}
}

func TestNewServiceRejectsBadConfig(t *testing.T) {
	_, err := NewService(Config{AccessSecret: []byte("same"), RefreshSecret: []byte("same"), AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.ErrorIs(t, err, ErrSecretsNotDistinct)

	_, err = NewService(Config{AccessSecret: []byte("a"), AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.ErrorIs(t, err, ErrMissingSecret)

	_, err = NewService(Config{AccessSecret: []byte("a"), RefreshSecret: []byte("b"), RefreshTTL: time.Hour})
	require.ErrorIs(t, err, ErrInvalidTTL)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc, clock := newTestService(t)

	token, err := svc.IssueAccessToken(testIdentity())
	require.NoError(t, err)

	id, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", id.SubjectID)
	require.Equal(t, "tenant-1", id.TenantID)
	require.Equal(t, "owner@example.com", id.Email)
	require.Equal(t, "admin", id.Role)
	require.Equal(t, "professional", id.Tier)
	require.True(t, id.HasPermission("invoice.write"))
	require.False(t, id.HasPermission("settings.write"))
	require.Equal(t, clock.now.Add(15*time.Minute).Unix(), id.ExpiresAt.Unix())
}

func TestAccessTokenExpiry(t *testing.T) {
	svc, clock := newTestService(t)
	token, err := svc.IssueAccessToken(testIdentity())
	require.NoError(t, err)

	clock.Advance(15*time.Minute - time.Second)
	_, err = svc.VerifyAccessToken(token)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = svc.VerifyAccessToken(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestTypeConfusionRejected(t *testing.T) {
	svc, _ := newTestService(t)

	pair, err := svc.IssueTokenPair(testIdentity(), "family-1")
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenTypeInvalid)

	_, err = svc.VerifyRefreshToken(pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenTypeInvalid)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	svc, clock := newTestService(t)

	pair, err := svc.IssueTokenPair(testIdentity(), "family-1")
	require.NoError(t, err)
	require.Equal(t, int64(900), pair.ExpiresIn)
	require.NotEmpty(t, pair.RefreshID)

	grant, err := svc.VerifyRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", grant.SubjectID)
	require.Equal(t, "tenant-1", grant.TenantID)
	require.Equal(t, "family-1", grant.FamilyID)
	require.Equal(t, pair.RefreshID, grant.TokenID)
	require.Equal(t, clock.now.Add(7*24*time.Hour).Unix(), grant.ExpiresAt.Unix())

	next, err := svc.IssueRefreshToken(grant.SubjectID, grant.TenantID, grant.FamilyID)
	require.NoError(t, err)
	nextGrant, err := svc.VerifyRefreshToken(next)
	require.NoError(t, err)
	require.Equal(t, grant.FamilyID, nextGrant.FamilyID)
	require.NotEqual(t, grant.TokenID, nextGrant.TokenID)
}

func TestVerifyTaxonomy(t *testing.T) {
	svc, _ := newTestService(t)
	token, err := svc.IssueAccessToken(testIdentity())
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken("")
	require.ErrorIs(t, err, ErrTokenMissing)

	_, err = svc.VerifyAccessToken("only.two")
	require.ErrorIs(t, err, ErrTokenMalformed)

	last := token[len(token)-2]
	flip := byte('A')
	if last == 'A' {
		flip = 'B'
	}
	tampered := token[:len(token)-2] + string(flip) + token[len(token)-1:]
	_, err = svc.VerifyAccessToken(tampered)
	require.ErrorIs(t, err, ErrTokenInvalid)
	require.NotErrorIs(t, err, ErrTokenTypeInvalid)

	other, err := NewService(Config{
		AccessSecret:  []byte("a-completely-different-secret-01"),
		RefreshSecret: []byte("a-completely-different-secret-02"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)
	foreign, err := other.IssueAccessToken(testIdentity())
	require.NoError(t, err)
	_, err = svc.VerifyAccessToken(foreign)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestIssueRejectsEmptyIdentity(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.IssueAccessToken(IdentityClaims{TenantID: "t"})
	require.ErrorIs(t, err, ErrInvalidIdentity)

	_, err = svc.IssueRefreshToken("u", "t", "")
	require.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestGenerateFamilyID(t *testing.T) {
	seen := make(map[string]struct{}, 256)
	for i := 0; i < 256; i++ {
		id, err := GenerateFamilyID()
		require.NoError(t, err)
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		require.Equal(t, uuid.Version(7), parsed.Version())
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}
