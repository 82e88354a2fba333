package goEntitle

import "time"

// SecurityReport summarizes the engine's effective security posture, for
// startup logs and health endpoints. It never includes secrets.
type SecurityReport struct {
	ProductionMode        bool
	SigningAlgorithm      string
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	IssuerPinned          bool
	AudiencePinned        bool
	RefreshReuseDetection bool
	RefreshThrottle       bool
	LicenseIssuerPinned   bool
	LicenseStoreSealed    bool
	EntitlementCacheTTL   time.Duration
	RevokedEntitlements   int
	AuditEnabled          bool
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	revoked := 0
	if e.revocations != nil {
		revoked = len(e.revocations.IDs())
	}
	return SecurityReport{
		ProductionMode:        e.config.Security.ProductionMode,
		SigningAlgorithm:      "HS256",
		AccessTTL:             e.config.Session.AccessTTL,
		RefreshTTL:            e.config.Session.RefreshTTL,
		IssuerPinned:          e.config.Session.Issuer != "",
		AudiencePinned:        e.config.Session.Audience != "",
		RefreshReuseDetection: e.families != nil,
		RefreshThrottle:       e.config.Security.EnableRefreshThrottle,
		LicenseIssuerPinned:   e.config.License.Issuer != "",
		LicenseStoreSealed:    e.licenses != nil,
		EntitlementCacheTTL:   e.config.Cache.TTL,
		RevokedEntitlements:   revoked,
		AuditEnabled:          e.audit != nil,
	}
}

// LogSecurityReport writes the report at info level.
func (e *Engine) LogSecurityReport() {
	if e == nil {
		return
	}
	r := e.SecurityReport()
	e.logger.Info().
		Bool("production", r.ProductionMode).
		Str("alg", r.SigningAlgorithm).
		Dur("access_ttl", r.AccessTTL).
		Dur("refresh_ttl", r.RefreshTTL).
		Bool("issuer_pinned", r.IssuerPinned).
		Bool("audience_pinned", r.AudiencePinned).
		Bool("refresh_throttle", r.RefreshThrottle).
		Dur("entitlement_cache_ttl", r.EntitlementCacheTTL).
		Int("revoked_entitlements", r.RevokedEntitlements).
		Bool("audit", r.AuditEnabled).
		Msg("security posture")
}
