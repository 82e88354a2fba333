package goEntitle

import (
	"context"
	"errors"

	"github.com/MrEthical07/goEntitle/guard"
	"github.com/MrEthical07/goEntitle/license"
	"github.com/MrEthical07/goEntitle/session"
)

const (
	auditEventSessionIssued        = "session_issued"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshInvalid       = "refresh_invalid"
	auditEventRefreshRateLimited   = "refresh_rate_limited"
	auditEventRefreshReuseDetected = "refresh_reuse_detected"
	auditEventLogout               = "logout"
	auditEventEntitlementIssued    = "entitlement_issued"
	auditEventEntitlementInvalid   = "entitlement_invalid"
	auditEventEntitlementDenied    = "entitlement_denied"
	auditEventEntitlementRevoked   = "entitlement_revoked"
	auditEventEntitlementDeleted   = "entitlement_deleted"
)

// AuditErrorCode is the stable, non-sensitive error label carried by audit
// events.
type AuditErrorCode string

const (
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrRefreshReuse       AuditErrorCode = "refresh_reuse"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrNoEntitlement      AuditErrorCode = "no_entitlement"
	auditErrTierInsufficient   AuditErrorCode = "tier_insufficient"
	auditErrFeatureUnavailable AuditErrorCode = "feature_unavailable"
	auditErrLimitExceeded      AuditErrorCode = "limit_exceeded"
	auditErrAccessDenied       AuditErrorCode = "access_denied"
	auditErrLicenseExpired     AuditErrorCode = "license_expired"
	auditErrLicenseNotStarted  AuditErrorCode = "license_not_started"
	auditErrLicenseTampered    AuditErrorCode = "license_tampered"
	auditErrLicenseRevoked     AuditErrorCode = "license_revoked"
	auditErrTenantMismatch     AuditErrorCode = "tenant_mismatch"
	auditErrLicenseInvalid     AuditErrorCode = "license_invalid"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// auditRef names the objects an event is about.
type auditRef struct {
	SubjectID     string
	TenantID      string
	FamilyID      string
	EntitlementID string
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	ref auditRef,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:     e.now().UTC(),
		EventType:     eventType,
		SubjectID:     ref.SubjectID,
		TenantID:      ref.TenantID,
		FamilyID:      ref.FamilyID,
		EntitlementID: ref.EntitlementID,
		IP:            clientIPFromContext(ctx),
		Success:       success,
		Metadata:      metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	var (
		tierErr    *guard.TierInsufficientError
		featureErr *guard.FeatureNotAvailableError
		limitErr   *guard.LimitExceededError
	)

	switch {
	case errors.Is(err, ErrRefreshRateLimited):
		return auditErrRateLimited
	case errors.Is(err, session.ErrFamilyReuse):
		return auditErrRefreshReuse
	case errors.Is(err, session.ErrFamilyNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, session.ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, session.ErrTokenMissing),
		errors.Is(err, session.ErrTokenMalformed),
		errors.Is(err, session.ErrTokenInvalid),
		errors.Is(err, session.ErrTokenTypeInvalid):
		return auditErrInvalidToken
	case errors.As(err, &tierErr):
		return auditErrTierInsufficient
	case errors.As(err, &featureErr):
		return auditErrFeatureUnavailable
	case errors.As(err, &limitErr):
		return auditErrLimitExceeded
	case errors.Is(err, guard.ErrNoEntitlement),
		errors.Is(err, license.ErrNoEntitlement):
		return auditErrNoEntitlement
	case errors.Is(err, guard.ErrAccessDenied):
		return auditErrAccessDenied
	case errors.Is(err, license.ErrLicenseExpired):
		return auditErrLicenseExpired
	case errors.Is(err, license.ErrLicenseNotStarted):
		return auditErrLicenseNotStarted
	case errors.Is(err, license.ErrLicenseTampered):
		return auditErrLicenseTampered
	case errors.Is(err, license.ErrLicenseRevoked):
		return auditErrLicenseRevoked
	case errors.Is(err, license.ErrTenantMismatch):
		return auditErrTenantMismatch
	case errors.Is(err, license.ErrInvalidLicenseKey),
		errors.Is(err, license.ErrDecryptionFailed),
		errors.Is(err, license.ErrInvalidOptions):
		return auditErrLicenseInvalid
	case errors.Is(err, session.ErrRedisUnavailable),
		errors.Is(err, license.ErrRedisUnavailable),
		errors.Is(err, ErrIdentityUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
