package license

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLicenseKey is returned for missing, malformed or ill-formed tokens.
	ErrInvalidLicenseKey = errors.New("invalid license key")
	// ErrLicenseTampered is returned when the signature does not verify.
	ErrLicenseTampered = errors.New("license tampered")
	// ErrLicenseExpired is returned when now is past the grant's expiry.
	ErrLicenseExpired = errors.New("license expired")
	// ErrLicenseNotStarted is returned when now is before the grant's issue time.
	ErrLicenseNotStarted = errors.New("license not yet valid")
	// ErrLicenseRevoked is returned when the revocation hook lists the entitlement.
	ErrLicenseRevoked = errors.New("license revoked")
	// ErrTenantMismatch is returned when the grant belongs to another tenant.
	ErrTenantMismatch = errors.New("license tenant mismatch")
	// ErrDecryptionFailed is returned when a stored license cannot be unsealed.
	ErrDecryptionFailed = errors.New("license decryption failed")
	// ErrInvalidOptions is returned by the generator for unusable inputs.
	ErrInvalidOptions = errors.New("invalid license options")
	// ErrNoEntitlement is returned when no license is stored for a tenant.
	ErrNoEntitlement = errors.New("no entitlement for tenant")
	// ErrMissingSecret is returned when the signing secret is empty.
	ErrMissingSecret = errors.New("license secret missing")
	// ErrRedisUnavailable wraps transport failures from the license store.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// ValidationError is returned by [Validator.Validate]. Expired grants carry
// the computed entitlement so callers can report how long ago it lapsed;
// every other failure carries none.
type ValidationError struct {
	Err         error
	Entitlement *ValidatedEntitlement
}

func (e *ValidationError) Error() string {
	if e.Entitlement != nil && errors.Is(e.Err, ErrLicenseExpired) {
		return fmt.Sprintf("%v: entitlement %s expired %d day(s) ago",
			e.Err, e.Entitlement.EntitlementID, -e.Entitlement.DaysRemaining)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error) error {
	return &ValidationError{Err: err}
}
