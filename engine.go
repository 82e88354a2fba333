package goEntitle

import (
	"context"
	"errors"
	"fmt"
	"time"

	internalaudit "github.com/MrEthical07/goEntitle/internal/audit"
	"github.com/MrEthical07/goEntitle/internal/rate"
	"github.com/MrEthical07/goEntitle/license"
	"github.com/MrEthical07/goEntitle/permission"
	"github.com/MrEthical07/goEntitle/session"
	"github.com/rs/zerolog"
)

// Engine authenticates session tokens and resolves tenant entitlements.
// Build one with [New]; it is safe for concurrent use.
type Engine struct {
	config      Config
	logger      zerolog.Logger
	now         func() time.Time
	registry    *permission.Registry
	roleManager *permission.RoleManager
	sessions    *session.Service
	families    *session.FamilyStore
	limiter     *rate.Limiter
	generator   *license.Generator
	validator   *license.Validator
	revocations *license.RevocationList
	licenses    *license.RedisStore
	source      EntitlementSource
	cache       *license.Cache
	identities  IdentityProvider
	audit       *internalaudit.Dispatcher
	metrics     *Metrics
}

// Close flushes pending audit events and releases the entitlement cache.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.cache != nil {
		e.cache.Close()
	}
}

// AuditDropped reports audit events discarded because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Logger returns the logger the engine was built with.
func (e *Engine) Logger() *zerolog.Logger {
	if e == nil {
		l := zerolog.Nop()
		return &l
	}
	return &e.logger
}

func (e *Engine) AuditStats() AuditStats {
	if e == nil {
		return AuditStats{}
	}
	return e.audit.Stats()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e.metrics != nil {
		e.metrics.Inc(id)
	}
}

// Authenticate verifies an access token. It never touches Redis: a token is
// trusted until it expires.
func (e *Engine) Authenticate(_ context.Context, token string) (*session.Identity, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	id, err := e.sessions.VerifyAccessToken(token)
	e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		return nil, err
	}
	e.metricInc(MetricAuthenticateSuccess)
	return id, nil
}

// IssueSession starts a new refresh family for the identity and returns its
// first token pair.
func (e *Engine) IssueSession(ctx context.Context, claims session.IdentityClaims) (session.TokenPair, error) {
	if e == nil || e.sessions == nil {
		return session.TokenPair{}, ErrEngineNotReady
	}

	claims = e.expandRole(claims)
	familyID, err := session.GenerateFamilyID()
	if err != nil {
		return session.TokenPair{}, err
	}
	pair, err := e.sessions.IssueTokenPair(claims, familyID)
	if err != nil {
		return session.TokenPair{}, err
	}
	if err := e.families.Register(ctx, claims.TenantID, claims.SubjectID, familyID, pair.RefreshID, e.sessions.RefreshTTL()); err != nil {
		return session.TokenPair{}, err
	}

	e.metricInc(MetricSessionIssued)
	ref := auditRef{SubjectID: claims.SubjectID, TenantID: claims.TenantID, FamilyID: familyID}
	e.emitAudit(ctx, auditEventSessionIssued, true, ref, nil, nil)
	e.logger.Debug().
		Str("tenant_id", claims.TenantID).
		Str("subject_id", claims.SubjectID).
		Str("family_id", familyID).
		Msg("session issued")
	return pair, nil
}

// Refresh rotates a refresh token. The presented token must be the current
// one of its family; presenting an already rotated token revokes the whole
// family and fails with [ErrRefreshReuse]. The new access token carries the
// identity as the [IdentityProvider] reports it now.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (session.TokenPair, error) {
	if e == nil || e.sessions == nil {
		return session.TokenPair{}, ErrEngineNotReady
	}

	grant, err := e.sessions.VerifyRefreshToken(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, auditRef{}, err, nil)
		return session.TokenPair{}, err
	}
	ref := auditRef{SubjectID: grant.SubjectID, TenantID: grant.TenantID, FamilyID: grant.FamilyID}

	if err := e.limiter.Allow(ctx, grant.TenantID+":"+grant.FamilyID); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricRefreshRateLimited)
			e.emitAudit(ctx, auditEventRefreshRateLimited, false, ref, ErrRefreshRateLimited, nil)
			return session.TokenPair{}, ErrRefreshRateLimited
		}
		return session.TokenPair{}, fmt.Errorf("%w: %v", session.ErrRedisUnavailable, err)
	}

	claims, err := e.identities.LoadIdentity(ctx, grant.TenantID, grant.SubjectID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		err = fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, ref, err, nil)
		return session.TokenPair{}, err
	}
	if claims.SubjectID == "" {
		claims.SubjectID = grant.SubjectID
	}
	if claims.TenantID == "" {
		claims.TenantID = grant.TenantID
	}
	if claims.SubjectID != grant.SubjectID || claims.TenantID != grant.TenantID {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, ref, session.ErrInvalidIdentity, nil)
		return session.TokenPair{}, fmt.Errorf("%w: provider returned a different subject", session.ErrInvalidIdentity)
	}
	claims = e.expandRole(claims)

	nextToken, next, err := e.sessions.IssueRefreshGrant(grant.SubjectID, grant.TenantID, grant.FamilyID)
	if err != nil {
		return session.TokenPair{}, err
	}
	if err := e.families.Rotate(ctx, grant, next.TokenID); err != nil {
		if errors.Is(err, session.ErrFamilyReuse) {
			e.metricInc(MetricRefreshReuseDetected)
			e.emitAudit(ctx, auditEventRefreshReuseDetected, false, ref, err, nil)
			e.logger.Warn().
				Str("tenant_id", grant.TenantID).
				Str("subject_id", grant.SubjectID).
				Str("family_id", grant.FamilyID).
				Msg("refresh token reuse, family revoked")
		} else {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, ref, err, nil)
		}
		return session.TokenPair{}, err
	}

	access, err := e.sessions.IssueAccessToken(claims)
	if err != nil {
		return session.TokenPair{}, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, ref, nil, nil)
	return session.TokenPair{
		AccessToken:  access,
		RefreshToken: nextToken,
		ExpiresIn:    int64(e.sessions.AccessTTL() / time.Second),
		FamilyID:     grant.FamilyID,
		RefreshID:    next.TokenID,
	}, nil
}

// Logout revokes every refresh family of the subject. Access tokens already
// issued stay valid until they expire.
func (e *Engine) Logout(ctx context.Context, tenantID, subjectID string) error {
	if e == nil || e.families == nil {
		return ErrEngineNotReady
	}
	families, err := e.families.RevokeAll(ctx, tenantID, subjectID)
	if err != nil {
		return err
	}
	e.resetRefreshThrottle(ctx, tenantID, families...)

	e.metricInc(MetricLogout)
	ref := auditRef{SubjectID: subjectID, TenantID: tenantID}
	e.emitAudit(ctx, auditEventLogout, true, ref, nil, func() map[string]string {
		return map[string]string{"families": fmt.Sprint(len(families))}
	})
	return nil
}

// LogoutSession revokes a single refresh family.
func (e *Engine) LogoutSession(ctx context.Context, tenantID, subjectID, familyID string) error {
	if e == nil || e.families == nil {
		return ErrEngineNotReady
	}
	if err := e.families.Revoke(ctx, tenantID, subjectID, familyID); err != nil {
		return err
	}
	e.resetRefreshThrottle(ctx, tenantID, familyID)

	e.metricInc(MetricLogout)
	ref := auditRef{SubjectID: subjectID, TenantID: tenantID, FamilyID: familyID}
	e.emitAudit(ctx, auditEventLogout, true, ref, nil, nil)
	return nil
}

// resetRefreshThrottle drops the refresh windows of revoked families. The
// logout already succeeded, so a failure here is only logged.
func (e *Engine) resetRefreshThrottle(ctx context.Context, tenantID string, families ...string) {
	ids := make([]string, len(families))
	for i, familyID := range families {
		ids[i] = tenantID + ":" + familyID
	}
	if err := e.limiter.Reset(ctx, ids...); err != nil {
		e.logger.Warn().Err(err).
			Str("tenant_id", tenantID).
			Int("families", len(families)).
			Msg("refresh throttle reset failed")
	}
}

// ActiveSessions lists the subject's live refresh family ids.
func (e *Engine) ActiveSessions(ctx context.Context, tenantID, subjectID string) ([]string, error) {
	if e == nil || e.families == nil {
		return nil, ErrEngineNotReady
	}
	return e.families.ActiveFamilies(ctx, tenantID, subjectID)
}

// Ping reports the Redis round trip.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.families == nil {
		return 0, ErrEngineNotReady
	}
	return e.families.Ping(ctx)
}

// expandRole fills in permissions from the role when the caller gave none.
func (e *Engine) expandRole(claims session.IdentityClaims) session.IdentityClaims {
	if len(claims.Permissions) > 0 || claims.Role == "" || e.roleManager == nil {
		return claims
	}
	if perms, ok := e.roleManager.Permissions(claims.Role); ok {
		claims.Permissions = perms
	}
	return claims
}

// RoleAllows reports whether role grants perm under the configured roles.
func (e *Engine) RoleAllows(role, perm string) bool {
	return e != nil && e.roleManager != nil && e.roleManager.Allows(role, perm)
}
