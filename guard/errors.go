package guard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goEntitle/license"
)

var (
	// ErrAccessDenied matches every denial returned by this package.
	ErrAccessDenied = errors.New("access denied")
	// ErrNoEntitlement is returned when there is no entitlement to check.
	ErrNoEntitlement = fmt.Errorf("%w: no entitlement", ErrAccessDenied)
)

// LimitType names a usage limit.
type LimitType string

const (
	LimitUsers    LimitType = "users"
	LimitProducts LimitType = "products"
)

// TierInsufficientError reports that the tenant's tier ranks below the
// required one.
type TierInsufficientError struct {
	Required license.Tier
	Current  license.Tier
}

func (e *TierInsufficientError) Error() string {
	return fmt.Sprintf("the %s tier is required, current tier is %s",
		e.Required.DisplayName(), e.Current.DisplayName())
}

func (e *TierInsufficientError) Is(target error) bool {
	return target == ErrAccessDenied
}

// FeatureNotAvailableError reports features the entitlement does not enable.
// RequiredTier is the single tier that includes all of them by default, or
// empty when they are disabled for a reason other than tier.
type FeatureNotAvailableError struct {
	Missing      []string
	RequiredTier license.Tier
	CurrentTier  license.Tier
}

func (e *FeatureNotAvailableError) Error() string {
	noun := "feature"
	if len(e.Missing) > 1 {
		noun = "features"
	}
	if e.RequiredTier == "" {
		return fmt.Sprintf("%s %s disabled for this license", noun, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s %s not available on the %s tier, requires %s",
		noun, strings.Join(e.Missing, ", "), e.CurrentTier.DisplayName(), e.RequiredTier.DisplayName())
}

func (e *FeatureNotAvailableError) Is(target error) bool {
	return target == ErrAccessDenied
}

// LimitExceededError reports a usage count at or over its cap.
type LimitExceededError struct {
	LimitType LimitType
	Current   int
	Max       int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s limit reached: %d of %d", e.LimitType, e.Current, e.Max)
}

func (e *LimitExceededError) Is(target error) bool {
	return target == ErrAccessDenied
}
