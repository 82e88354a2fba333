package goEntitle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goEntitle/guard"
	"github.com/MrEthical07/goEntitle/license"
	"github.com/google/uuid"
)

// IssueEntitlement signs a grant, stores it as the tenant's current license
// and drops the tenant's cached entitlement. An empty EntitlementID gets a
// random one.
func (e *Engine) IssueEntitlement(ctx context.Context, opts license.Options) (string, error) {
	if e == nil || e.generator == nil {
		return "", ErrEngineNotReady
	}
	if opts.EntitlementID == "" {
		opts.EntitlementID = uuid.NewString()
	}
	token, err := e.generator.Generate(opts)
	if err != nil {
		return "", err
	}
	if err := e.storeEntitlement(ctx, opts.TenantID, token); err != nil {
		return "", err
	}

	e.metricInc(MetricEntitlementIssued)
	ref := auditRef{TenantID: opts.TenantID, EntitlementID: opts.EntitlementID}
	e.emitAudit(ctx, auditEventEntitlementIssued, true, ref, nil, func() map[string]string {
		return map[string]string{
			"tier": string(opts.Tier),
			"days": fmt.Sprint(opts.DurationDays),
		}
	})
	e.logger.Info().
		Str("tenant_id", opts.TenantID).
		Str("entitlement_id", opts.EntitlementID).
		Str("tier", string(opts.Tier)).
		Msg("entitlement issued")
	return token, nil
}

// IssueTrial issues the standard trial grant for a tenant.
func (e *Engine) IssueTrial(ctx context.Context, tenantID string) (string, error) {
	return e.IssueEntitlement(ctx, license.Options{
		TenantID:     tenantID,
		Tier:         license.TierBasic,
		DurationDays: license.TrialDays,
		MaxUsers:     license.Int(license.TrialMaxUsers),
		MaxProducts:  license.Int(license.TrialMaxProducts),
	})
}

// ExtendEntitlement pushes the stored license's expiry back by days.
func (e *Engine) ExtendEntitlement(ctx context.Context, tenantID string, days int) (string, error) {
	return e.reissue(ctx, tenantID, "extend", func(token string) (string, error) {
		return e.generator.Extend(token, days)
	})
}

// UpgradeEntitlement moves the stored license to a higher tier.
func (e *Engine) UpgradeEntitlement(ctx context.Context, tenantID string, tier license.Tier, opts license.UpgradeOptions) (string, error) {
	return e.reissue(ctx, tenantID, "upgrade", func(token string) (string, error) {
		return e.generator.Upgrade(token, tier, opts)
	})
}

func (e *Engine) reissue(ctx context.Context, tenantID, action string, change func(string) (string, error)) (string, error) {
	if e == nil || e.generator == nil {
		return "", ErrEngineNotReady
	}
	current, err := e.licenses.LicenseToken(ctx, tenantID)
	if err != nil {
		return "", err
	}
	// Only reissue what this engine would accept; Extend and Upgrade do not
	// check the signature themselves.
	ve, err := e.validator.Validate(current, tenantID)
	if err != nil && !errors.Is(err, license.ErrLicenseExpired) {
		return "", err
	}
	if ve == nil {
		var verr *license.ValidationError
		if errors.As(err, &verr) {
			ve = verr.Entitlement
		}
	}

	token, err := change(current)
	if err != nil {
		return "", err
	}
	if err := e.storeEntitlement(ctx, tenantID, token); err != nil {
		return "", err
	}

	e.metricInc(MetricEntitlementIssued)
	ref := auditRef{TenantID: tenantID}
	if ve != nil {
		ref.EntitlementID = ve.EntitlementID
	}
	e.emitAudit(ctx, auditEventEntitlementIssued, true, ref, nil, func() map[string]string {
		return map[string]string{"action": action}
	})
	return token, nil
}

func (e *Engine) storeEntitlement(ctx context.Context, tenantID, token string) error {
	if err := e.licenses.Put(ctx, tenantID, token, e.config.License.StoreTTL); err != nil {
		return err
	}
	e.cache.Invalidate(tenantID)
	return nil
}

// Entitlement returns the tenant's validated entitlement, from cache when
// possible. A missing license is [ErrNoEntitlement]; an invalid one is the
// validator's error, and is not cached.
func (e *Engine) Entitlement(ctx context.Context, tenantID string) (*license.ValidatedEntitlement, error) {
	if e == nil || e.cache == nil {
		return nil, ErrEngineNotReady
	}
	if strings.TrimSpace(tenantID) == "" {
		return nil, fmt.Errorf("%w: tenant id required", license.ErrNoEntitlement)
	}

	if ve, ok := e.cache.Get(tenantID); ok {
		e.metricInc(MetricEntitlementCacheHit)
		e.logger.Debug().Str("tenant_id", tenantID).Msg("entitlement cache hit")
		return ve, nil
	}
	e.metricInc(MetricEntitlementCacheMiss)
	e.logger.Debug().Str("tenant_id", tenantID).Msg("entitlement cache miss")

	token, err := e.source.LicenseToken(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	ve, err := e.validator.GetCachedOrValidate(token, tenantID)
	if err != nil {
		e.metricInc(MetricEntitlementValidationFailure)
		e.emitAudit(ctx, auditEventEntitlementInvalid, false, auditRef{TenantID: tenantID}, err, nil)
		return nil, err
	}

	if !e.cache.Set(tenantID, ve) {
		e.logger.Warn().
			Str("tenant_id", tenantID).
			Str("entitlement_id", ve.EntitlementID).
			Msg("entitlement not cached")
	}
	return ve, nil
}

// Authorize evaluates req against ve. Denials are counted and audited and
// returned as the guard's typed error.
func (e *Engine) Authorize(ve *license.ValidatedEntitlement, req guard.Requirement) error {
	err := req.Evaluate(ve)
	if err == nil || e == nil {
		return err
	}

	e.metricInc(MetricGuardDenied)
	var ref auditRef
	if ve != nil {
		ref = auditRef{TenantID: ve.TenantID, EntitlementID: ve.EntitlementID}
	}
	e.emitAudit(context.Background(), auditEventEntitlementDenied, false, ref, err, func() map[string]string {
		md := map[string]string{}
		if req.Tier != "" {
			md["required_tier"] = string(req.Tier)
		}
		if len(req.Features) > 0 {
			md["features"] = strings.Join(req.Features, ",")
		}
		return md
	})
	return err
}

// Require resolves the tenant's entitlement and authorizes req against it.
// The entitlement is returned even on denial when it was resolved.
func (e *Engine) Require(ctx context.Context, tenantID string, req guard.Requirement) (*license.ValidatedEntitlement, error) {
	ve, err := e.Entitlement(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return ve, e.Authorize(ve, req)
}

// RevokeEntitlement records entitlementID as revoked, persists the
// revocation and drops cached results so the next lookup fails.
func (e *Engine) RevokeEntitlement(ctx context.Context, tenantID, entitlementID string) error {
	if e == nil || e.revocations == nil {
		return ErrEngineNotReady
	}
	if entitlementID == "" {
		return fmt.Errorf("%w: entitlement id required", license.ErrInvalidOptions)
	}
	if err := e.licenses.MarkRevoked(ctx, entitlementID); err != nil {
		return err
	}
	e.revocations.Revoke(entitlementID)
	e.validator.ClearCache()
	e.cache.Invalidate(tenantID)

	e.metricInc(MetricEntitlementRevoked)
	ref := auditRef{TenantID: tenantID, EntitlementID: entitlementID}
	e.emitAudit(ctx, auditEventEntitlementRevoked, true, ref, nil, nil)
	e.logger.Info().
		Str("tenant_id", tenantID).
		Str("entitlement_id", entitlementID).
		Msg("entitlement revoked")
	return nil
}

// DeleteEntitlement removes the tenant's stored license and its cached
// entitlement. Unlike revocation the grant itself stays valid; the tenant
// simply has no license until a new one is issued.
func (e *Engine) DeleteEntitlement(ctx context.Context, tenantID string) error {
	if e == nil || e.licenses == nil {
		return ErrEngineNotReady
	}
	if tenantID == "" {
		return fmt.Errorf("%w: tenant id required", license.ErrInvalidOptions)
	}
	if err := e.licenses.Delete(ctx, tenantID); err != nil {
		return err
	}
	e.cache.Invalidate(tenantID)

	e.emitAudit(ctx, auditEventEntitlementDeleted, true, auditRef{TenantID: tenantID}, nil, nil)
	e.logger.Info().Str("tenant_id", tenantID).Msg("entitlement deleted")
	return nil
}

// SyncRevocations loads revocations recorded by other processes. Call it at
// startup and periodically; it never un-revokes.
func (e *Engine) SyncRevocations(ctx context.Context) (int, error) {
	if e == nil || e.revocations == nil {
		return 0, ErrEngineNotReady
	}
	ids, err := e.licenses.RevokedIDs(ctx)
	if err != nil {
		return 0, err
	}
	before := len(e.revocations.IDs())
	e.revocations.Load(ids)
	added := len(e.revocations.IDs()) - before
	if added > 0 {
		e.ClearEntitlementCache()
	}
	return added, nil
}

// InvalidateEntitlement drops one tenant's cached entitlement.
func (e *Engine) InvalidateEntitlement(tenantID string) {
	if e == nil || e.cache == nil {
		return
	}
	e.cache.Invalidate(tenantID)
}

// ClearEntitlementCache drops every cached entitlement and the validator's
// snapshot.
func (e *Engine) ClearEntitlementCache() {
	if e == nil || e.cache == nil {
		return
	}
	e.cache.Clear()
	e.validator.ClearCache()
}
