package license

import (
	"bytes"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goEntitle/jwt"
)

// Validator verifies entitlement tokens.
//
// It keeps a single-slot snapshot of the last successful validation, swapped
// atomically, which [Validator.GetCachedOrValidate] reuses for the same token.
// Validator is safe for concurrent use.
type Validator struct {
	secret   []byte
	codec    *jwt.Codec
	cfg      settings
	expect   jwt.Expect
	snapshot atomic.Pointer[snapshot]
}

type snapshot struct {
	token     string
	ve        *ValidatedEntitlement
	expiresAt time.Time
}

// NewValidator returns a validator for tokens signed with secret.
func NewValidator(secret []byte, opts ...Option) (*Validator, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	cfg := newSettings(opts)
	return &Validator{
		secret: bytes.Clone(secret),
		codec:  jwt.NewCodec(jwt.WithClock(cfg.now)),
		cfg:    cfg,
		expect: jwt.Expect{
			Issuer:              cfg.issuer,
			SkipExpiry:          true,
			AllowFutureIssuedAt: true,
		},
	}, nil
}

// Validate verifies token and, when expectedTenantID is non-empty, that it
// belongs to that tenant. Checks run in this order: signature, tenant,
// revocation, start time, expiry. Failures are *ValidationError; only an
// expired grant carries its entitlement.
func (v *Validator) Validate(token, expectedTenantID string) (*ValidatedEntitlement, error) {
	claims, err := jwt.Verify[licenseClaims](v.codec, token, v.secret, v.expect)
	if err != nil {
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return nil, invalid(ErrLicenseTampered)
		}
		return nil, invalid(fmt.Errorf("%w: %v", ErrInvalidLicenseKey, err))
	}
	grant, ok := claims.grant()
	if !ok {
		return nil, invalid(fmt.Errorf("%w: incomplete grant", ErrInvalidLicenseKey))
	}

	if expectedTenantID != "" && grant.TenantID != expectedTenantID {
		return nil, invalid(ErrTenantMismatch)
	}
	if v.cfg.revoker != nil && v.cfg.revoker.IsRevoked(grant.EntitlementID) {
		return nil, invalid(ErrLicenseRevoked)
	}

	now := v.cfg.now()
	if now.Before(grant.IssuedAt) {
		return nil, invalid(ErrLicenseNotStarted)
	}
	ve := newValidated(grant, now)
	if now.After(grant.ExpiresAt) {
		return nil, &ValidationError{Err: ErrLicenseExpired, Entitlement: ve}
	}

	v.snapshot.Store(&snapshot{
		token:     token,
		ve:        ve,
		expiresAt: now.Add(v.cfg.snapshotTTL),
	})
	return ve, nil
}

// GetCachedOrValidate returns the last result when it was for the same token
// and tenant and is still fresh, otherwise it validates.
func (v *Validator) GetCachedOrValidate(token, tenantID string) (*ValidatedEntitlement, error) {
	if snap := v.snapshot.Load(); snap != nil && snap.token == token {
		now := v.cfg.now()
		if now.Before(snap.expiresAt) && !now.After(snap.ve.ExpiresAt) &&
			(tenantID == "" || snap.ve.TenantID == tenantID) {
			return snap.ve, nil
		}
	}
	return v.Validate(token, tenantID)
}

// ClearCache drops the snapshot.
func (v *Validator) ClearCache() {
	v.snapshot.Store(nil)
}

// CheckFeatureAccess reports whether the grant enables feature.
func (v *Validator) CheckFeatureAccess(g *Grant, feature string) AccessResult {
	return CheckFeatureAccess(g, feature)
}

// CheckTierAccess reports whether the grant's tier is at least required.
func (v *Validator) CheckTierAccess(g *Grant, required Tier) AccessResult {
	return CheckTierAccess(g, required)
}

// CheckUserLimit reports whether current users leave room for one more.
func (v *Validator) CheckUserLimit(g *Grant, current int) bool {
	return g != nil && g.Limits.AllowsUsers(current)
}

// CheckProductLimit reports whether current products leave room for one
// more. An absent limit is unbounded.
func (v *Validator) CheckProductLimit(g *Grant, current int) bool {
	return g != nil && g.Limits.AllowsProducts(current)
}

// CheckFeatureAccess reports whether g enables feature. On denial the result
// names the tier that includes the feature by default.
func CheckFeatureAccess(g *Grant, feature string) AccessResult {
	if g == nil {
		return AccessResult{Reason: "no entitlement", RequiredTier: RequiredTier(feature)}
	}
	if g.HasFeature(feature) {
		return AccessResult{Allowed: true, CurrentTier: g.Tier}
	}
	required := RequiredTier(feature)
	return AccessResult{
		Reason:       fmt.Sprintf("feature %s requires the %s tier", feature, required.DisplayName()),
		RequiredTier: required,
		CurrentTier:  g.Tier,
	}
}

// CheckTierAccess reports whether g's tier ranks at least required.
func CheckTierAccess(g *Grant, required Tier) AccessResult {
	if g == nil {
		return AccessResult{Reason: "no entitlement", RequiredTier: required}
	}
	if g.Tier.AtLeast(required) {
		return AccessResult{Allowed: true, CurrentTier: g.Tier, RequiredTier: required}
	}
	return AccessResult{
		Reason:       fmt.Sprintf("the %s tier is required, current tier is %s", required.DisplayName(), g.Tier.DisplayName()),
		RequiredTier: required,
		CurrentTier:  g.Tier,
	}
}
