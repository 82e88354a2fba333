package license

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func issue(t *testing.T, gen *Generator, id, tenant string, tier Tier, days int) string {
	t.Helper()
	token, err := gen.Generate(Options{EntitlementID: id, TenantID: tenant, Tier: tier, DurationDays: days})
	require.NoError(t, err)
	return token
}

func TestValidateRejectsTamperedPayload(t *testing.T) {
	gen, val := newPair(t, newClock())
	token := issue(t, gen, "ent-1", "tenant-1", TierBasic, 30)

	parts := strings.Split(token, ".")
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	payload["tier"] = string(TierEnterprise)
	forged, err := json.Marshal(payload)
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString(forged)

	_, err = val.Validate(strings.Join(parts, "."), "tenant-1")
	require.ErrorIs(t, err, ErrLicenseTampered)
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	clock := newClock()
	other, err := NewGenerator([]byte("another-secret-another-secret-02"), WithClock(clock.Now))
	require.NoError(t, err)
	_, val := newPair(t, clock)

	_, err = val.Validate(issue(t, other, "ent-1", "tenant-1", TierBasic, 30), "tenant-1")
	require.ErrorIs(t, err, ErrLicenseTampered)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Nil(t, verr.Entitlement)
}

func TestValidateMalformed(t *testing.T) {
	_, val := newPair(t, newClock())

	for _, token := range []string{"", "abc", "a.b", "a..c", "a.b.c.d"} {
		_, err := val.Validate(token, "")
		require.ErrorIs(t, err, ErrInvalidLicenseKey, "token %q", token)
	}
}

func TestValidateTenantMismatchBeatsExpiry(t *testing.T) {
	clock := newClock()
	gen, val := newPair(t, clock)
	token := issue(t, gen, "ent-1", "tenant-A", TierEnterprise, 10)

	_, err := val.Validate(token, "tenant-B")
	require.ErrorIs(t, err, ErrTenantMismatch)

	clock.Advance(20 * day)
	_, err = val.Validate(token, "tenant-B")
	require.ErrorIs(t, err, ErrTenantMismatch)
	require.NotErrorIs(t, err, ErrLicenseExpired)

	_, err = val.Validate(token, "tenant-A")
	require.ErrorIs(t, err, ErrLicenseExpired)
}

func TestValidateWithoutTenantAcceptsAny(t *testing.T) {
	gen, val := newPair(t, newClock())
	ve, err := val.Validate(issue(t, gen, "ent-1", "tenant-A", TierBasic, 10), "")
	require.NoError(t, err)
	require.Equal(t, "tenant-A", ve.TenantID)
}

func TestValidateRevoked(t *testing.T) {
	revoked := NewRevocationList()
	gen, val := newPair(t, newClock(), WithRevoker(revoked))
	token := issue(t, gen, "ent-1", "tenant-1", TierBasic, 30)

	_, err := val.Validate(token, "tenant-1")
	require.NoError(t, err)

	revoked.Revoke("ent-1")
	_, err = val.Validate(token, "tenant-1")
	require.ErrorIs(t, err, ErrLicenseRevoked)

	other := issue(t, gen, "ent-2", "tenant-1", TierBasic, 30)
	_, err = val.Validate(other, "tenant-1")
	require.NoError(t, err)
}

func TestValidateIssuerMismatch(t *testing.T) {
	clock := newClock()
	gen, err := NewGenerator(testSecret, WithClock(clock.Now), WithIssuer("vendor-a"))
	require.NoError(t, err)
	val, err := NewValidator(testSecret, WithClock(clock.Now), WithIssuer("vendor-b"))
	require.NoError(t, err)

	_, err = val.Validate(issue(t, gen, "ent-1", "tenant-1", TierBasic, 30), "tenant-1")
	require.ErrorIs(t, err, ErrInvalidLicenseKey)
}

func TestExpiryBoundary(t *testing.T) {
	clock := newClock()
	gen, val := newPair(t, clock)
	token := issue(t, gen, "ent-1", "tenant-1", TierBasic, 1)

	clock.Advance(day)
	ve, err := val.Validate(token, "tenant-1")
	require.NoError(t, err, "still valid at exactly exp")
	require.Equal(t, 0, ve.DaysRemaining)
	require.True(t, ve.IsExpired)
	require.False(t, ve.IsExpiringSoon)

	clock.Advance(time.Second)
	_, err = val.Validate(token, "tenant-1")
	require.ErrorIs(t, err, ErrLicenseExpired)
}

func TestDerivedFields(t *testing.T) {
	clock := newClock()
	gen, val := newPair(t, clock)
	token := issue(t, gen, "ent-1", "tenant-1", TierProfessional, 31)

	ve, err := val.Validate(token, "tenant-1")
	require.NoError(t, err)
	require.Equal(t, 31, ve.DaysRemaining)
	require.False(t, ve.IsExpiringSoon)
	require.Equal(t, clock.now, ve.ValidatedAt)

	clock.Advance(time.Hour)
	ve, err = val.Validate(token, "tenant-1")
	require.NoError(t, err)
	require.Equal(t, 31, ve.DaysRemaining, "partial days round up")

	clock.Advance(day)
	ve, err = val.Validate(token, "tenant-1")
	require.NoError(t, err)
	require.Equal(t, 30, ve.DaysRemaining)
	require.True(t, ve.IsExpiringSoon)
}

func TestGetCachedOrValidate(t *testing.T) {
	clock := newClock()
	revoked := NewRevocationList()
	gen, val := newPair(t, clock, WithRevoker(revoked), WithSnapshotTTL(time.Minute))
	first := issue(t, gen, "ent-1", "tenant-1", TierBasic, 30)
	second := issue(t, gen, "ent-2", "tenant-2", TierEnterprise, 30)

	ve, err := val.Validate(first, "tenant-1")
	require.NoError(t, err)

	// Served from the snapshot even though the grant is now revoked.
	revoked.Revoke("ent-1")
	cached, err := val.GetCachedOrValidate(first, "tenant-1")
	require.NoError(t, err)
	require.Same(t, ve, cached)

	// A different tenant never gets the snapshot.
	_, err = val.GetCachedOrValidate(first, "tenant-2")
	require.ErrorIs(t, err, ErrTenantMismatch)

	// The snapshot goes stale.
	clock.Advance(2 * time.Minute)
	_, err = val.GetCachedOrValidate(first, "tenant-1")
	require.ErrorIs(t, err, ErrLicenseRevoked)

	// A different token replaces the snapshot.
	other, err := val.GetCachedOrValidate(second, "tenant-2")
	require.NoError(t, err)
	require.Equal(t, TierEnterprise, other.Tier)
	again, err := val.GetCachedOrValidate(second, "")
	require.NoError(t, err)
	require.Same(t, other, again)

	val.ClearCache()
	fresh, err := val.GetCachedOrValidate(second, "tenant-2")
	require.NoError(t, err)
	require.NotSame(t, other, fresh)
}

func TestSnapshotKeepsDaysRemainingUntilTTL(t *testing.T) {
	clock := newClock()
	gen, val := newPair(t, clock, WithSnapshotTTL(time.Minute))

	// Expires 9 days and 2 seconds from now: 10 days remaining, rounded up.
	token, err := gen.Generate(Options{
		EntitlementID: "ent-1",
		TenantID:      "tenant-1",
		Tier:          TierProfessional,
		DurationDays:  10,
		StartsAt:      clock.Now().Add(-24*time.Hour + 2*time.Second),
	})
	require.NoError(t, err)

	ve, err := val.GetCachedOrValidate(token, "tenant-1")
	require.NoError(t, err)
	require.Equal(t, 10, ve.DaysRemaining)

	// Crossing the day boundary inside the TTL does not change the answer.
	clock.Advance(3 * time.Second)
	cached, err := val.GetCachedOrValidate(token, "tenant-1")
	require.NoError(t, err)
	require.Equal(t, 10, cached.DaysRemaining)
	require.Same(t, ve, cached)

	// Past the TTL the grant is re-validated against the current time.
	clock.Advance(time.Minute)
	after, err := val.GetCachedOrValidate(token, "tenant-1")
	require.NoError(t, err)
	require.Equal(t, 9, after.DaysRemaining)
}

func TestSnapshotNeverOutlivesGrant(t *testing.T) {
	clock := newClock()
	gen, val := newPair(t, clock, WithSnapshotTTL(48*time.Hour))
	token := issue(t, gen, "ent-1", "tenant-1", TierBasic, 1)

	_, err := val.GetCachedOrValidate(token, "tenant-1")
	require.NoError(t, err)

	clock.Advance(day + time.Minute)
	_, err = val.GetCachedOrValidate(token, "tenant-1")
	require.ErrorIs(t, err, ErrLicenseExpired)
}

func TestValidateConcurrentSnapshots(t *testing.T) {
	gen, val := newPair(t, newClock())
	tokens := map[string]string{
		"tenant-1": issue(t, gen, "ent-1", "tenant-1", TierBasic, 30),
		"tenant-2": issue(t, gen, "ent-2", "tenant-2", TierProfessional, 30),
		"tenant-3": issue(t, gen, "ent-3", "tenant-3", TierEnterprise, 30),
	}

	var wg sync.WaitGroup
	errs := make(chan error, 300)
	for i := 0; i < 100; i++ {
		for tenant, token := range tokens {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ve, err := val.GetCachedOrValidate(token, tenant)
				if err != nil {
					errs <- err
					return
				}
				if ve.TenantID != tenant {
					errs <- ErrTenantMismatch
				}
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestCheckFeatureAccess(t *testing.T) {
	gen, val := newPair(t, newClock())
	ve, err := val.Validate(issue(t, gen, "ent-1", "tenant-1", TierBasic, 30), "")
	require.NoError(t, err)

	res := val.CheckFeatureAccess(&ve.Grant, FeatureInvoicing)
	require.True(t, res.Allowed)
	require.Equal(t, TierBasic, res.CurrentTier)

	res = val.CheckFeatureAccess(&ve.Grant, FeatureDemandForecasting)
	require.False(t, res.Allowed)
	require.Equal(t, TierProfessional, res.RequiredTier)
	require.Contains(t, res.Reason, "Professional")

	res = CheckFeatureAccess(nil, FeatureSSO)
	require.False(t, res.Allowed)
	require.Equal(t, TierEnterprise, res.RequiredTier)
}

func TestCheckTierAccess(t *testing.T) {
	gen, val := newPair(t, newClock())
	ve, err := val.Validate(issue(t, gen, "ent-1", "tenant-1", TierProfessional, 30), "")
	require.NoError(t, err)

	require.True(t, val.CheckTierAccess(&ve.Grant, TierBasic).Allowed)
	require.True(t, val.CheckTierAccess(&ve.Grant, TierProfessional).Allowed)
	res := val.CheckTierAccess(&ve.Grant, TierEnterprise)
	require.False(t, res.Allowed)
	require.Equal(t, TierProfessional, res.CurrentTier)
	require.Equal(t, TierEnterprise, res.RequiredTier)
}

func TestCheckLimits(t *testing.T) {
	gen, val := newPair(t, newClock())
	basic, err := val.Validate(issue(t, gen, "ent-1", "tenant-1", TierBasic, 30), "")
	require.NoError(t, err)
	ent, err := val.Validate(issue(t, gen, "ent-2", "tenant-2", TierEnterprise, 30), "")
	require.NoError(t, err)

	require.True(t, val.CheckUserLimit(&basic.Grant, 4))
	require.False(t, val.CheckUserLimit(&basic.Grant, 5))
	require.True(t, val.CheckProductLimit(&basic.Grant, 499))
	require.False(t, val.CheckProductLimit(&basic.Grant, 500))
	require.True(t, val.CheckProductLimit(&ent.Grant, 1_000_000))
	require.False(t, val.CheckUserLimit(nil, 0))
}
