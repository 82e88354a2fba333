package goEntitle

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/goEntitle/guard"
	"github.com/MrEthical07/goEntitle/license"
	"github.com/MrEthical07/goEntitle/session"
)

var (
	// ErrEngineNotReady is returned by methods on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrRefreshRateLimited reports too many refreshes for one family.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrIdentityUnavailable wraps identity provider failures during refresh.
	ErrIdentityUnavailable = errors.New("identity unavailable")
)

// Session token errors.
var (
	ErrTokenMissing      = session.ErrTokenMissing
	ErrTokenMalformed    = session.ErrTokenMalformed
	ErrTokenInvalid      = session.ErrTokenInvalid
	ErrTokenExpired      = session.ErrTokenExpired
	ErrTokenTypeInvalid  = session.ErrTokenTypeInvalid
	ErrInvalidTimeFormat = session.ErrInvalidTimeFormat
	ErrInvalidIdentity   = session.ErrInvalidIdentity
	ErrRefreshReuse      = session.ErrFamilyReuse
	ErrSessionNotFound   = session.ErrFamilyNotFound
)

// Entitlement errors.
var (
	ErrInvalidLicenseKey = license.ErrInvalidLicenseKey
	ErrLicenseExpired    = license.ErrLicenseExpired
	ErrLicenseNotStarted = license.ErrLicenseNotStarted
	ErrLicenseTampered   = license.ErrLicenseTampered
	ErrLicenseRevoked    = license.ErrLicenseRevoked
	ErrTenantMismatch    = license.ErrTenantMismatch
	ErrDecryptionFailed  = license.ErrDecryptionFailed
	ErrNoEntitlement     = license.ErrNoEntitlement
	ErrInvalidOptions    = license.ErrInvalidOptions
)

// ErrAccessDenied is matched by every guard denial.
var ErrAccessDenied = guard.ErrAccessDenied

// HTTPStatus maps an engine error to a response status: 401 for missing or
// bad credentials, 403 for a missing, invalid or insufficient entitlement,
// 429 for throttled refreshes and 500 for everything else.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrRefreshRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrTokenMissing),
		errors.Is(err, ErrTokenMalformed),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenTypeInvalid),
		errors.Is(err, ErrRefreshReuse),
		errors.Is(err, ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAccessDenied),
		errors.Is(err, ErrNoEntitlement),
		errors.Is(err, ErrInvalidLicenseKey),
		errors.Is(err, ErrLicenseExpired),
		errors.Is(err, ErrLicenseNotStarted),
		errors.Is(err, ErrLicenseTampered),
		errors.Is(err, ErrLicenseRevoked),
		errors.Is(err, ErrTenantMismatch),
		errors.Is(err, ErrDecryptionFailed):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
