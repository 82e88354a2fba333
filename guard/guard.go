package guard

import (
	"slices"

	"github.com/MrEthical07/goEntitle/license"
)

// RequireTier fails with *TierInsufficientError unless ve's tier ranks at
// least required.
func RequireTier(ve *license.ValidatedEntitlement, required license.Tier) error {
	if ve == nil {
		return ErrNoEntitlement
	}
	if !ve.Tier.AtLeast(required) {
		return &TierInsufficientError{Required: required, Current: ve.Tier}
	}
	return nil
}

// RequireFeature fails with *FeatureNotAvailableError unless ve enables
// feature.
func RequireFeature(ve *license.ValidatedEntitlement, feature string) error {
	if ve == nil {
		return ErrNoEntitlement
	}
	if ve.HasFeature(feature) {
		return nil
	}
	return &FeatureNotAvailableError{
		Missing:      []string{feature},
		RequiredTier: upgradeTier(ve.Tier, feature),
		CurrentTier:  ve.Tier,
	}
}

// upgradeTier is the tier that would unlock feature for a holder of current,
// or empty when current already includes it and an override switched it off.
func upgradeTier(current license.Tier, feature string) license.Tier {
	required := license.RequiredTier(feature)
	if current.AtLeast(required) {
		return ""
	}
	return required
}

// RequireUserLimit fails with *LimitExceededError unless current users leave
// room for one more.
func RequireUserLimit(ve *license.ValidatedEntitlement, current int) error {
	if ve == nil {
		return ErrNoEntitlement
	}
	if ve.Limits.AllowsUsers(current) {
		return nil
	}
	return &LimitExceededError{LimitType: LimitUsers, Current: current, Max: ve.Limits.MaxUsers}
}

// RequireProductLimit is RequireUserLimit for products. A grant without a
// product limit never fails.
func RequireProductLimit(ve *license.ValidatedEntitlement, current int) error {
	if ve == nil {
		return ErrNoEntitlement
	}
	if ve.Limits.AllowsProducts(current) {
		return nil
	}
	return &LimitExceededError{LimitType: LimitProducts, Current: current, Max: *ve.Limits.MaxProducts}
}

// Result is the outcome of a batch check.
type Result struct {
	Allowed bool
	// RequiredTier is the single tier that would satisfy the check.
	RequiredTier license.Tier
	CurrentTier  license.Tier
	// Missing lists features not enabled, in request order.
	Missing []string
}

// Err converts a denied result into the matching typed error.
func (r Result) Err() error {
	if r.Allowed {
		return nil
	}
	if len(r.Missing) > 0 {
		return &FeatureNotAvailableError{
			Missing:      slices.Clone(r.Missing),
			RequiredTier: r.RequiredTier,
			CurrentTier:  r.CurrentTier,
		}
	}
	if r.CurrentTier == "" {
		return ErrNoEntitlement
	}
	return &TierInsufficientError{Required: r.RequiredTier, Current: r.CurrentTier}
}

// CheckTiers allows ve when its tier ranks at least the lowest acceptable
// tier in tiers. Unknown tiers are ignored; an empty list allows any
// entitlement.
func CheckTiers(ve *license.ValidatedEntitlement, tiers []license.Tier) Result {
	var minimum license.Tier
	for _, t := range tiers {
		if !t.Valid() {
			continue
		}
		if minimum == "" || t.Rank() < minimum.Rank() {
			minimum = t
		}
	}
	if ve == nil {
		return Result{RequiredTier: minimum}
	}
	res := Result{RequiredTier: minimum, CurrentTier: ve.Tier}
	res.Allowed = minimum == "" || ve.Tier.AtLeast(minimum)
	return res
}

// CheckFeatures collects every feature in features that ve does not enable.
// RequiredTier is the one upgrade that unlocks them all by default. Features
// that ve's tier includes but an override disabled do not raise it; when
// every missing feature is of that kind RequiredTier stays empty.
func CheckFeatures(ve *license.ValidatedEntitlement, features []string) Result {
	if ve == nil {
		res := Result{Missing: dedupe(features)}
		for _, f := range res.Missing {
			res.RequiredTier = license.MaxTier(res.RequiredTier, license.RequiredTier(f))
		}
		return res
	}

	res := Result{CurrentTier: ve.Tier}
	for _, f := range dedupe(features) {
		if ve.HasFeature(f) {
			continue
		}
		res.Missing = append(res.Missing, f)
		res.RequiredTier = license.MaxTier(res.RequiredTier, upgradeTier(ve.Tier, f))
	}
	res.Allowed = len(res.Missing) == 0
	if res.Allowed {
		res.RequiredTier = ve.Tier
	}
	return res
}

func dedupe(features []string) []string {
	out := make([]string, 0, len(features))
	for _, f := range features {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}
