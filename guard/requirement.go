package guard

import "github.com/MrEthical07/goEntitle/license"

// Requirement is the entitlement a route or operation declares. The zero
// value still requires some valid entitlement.
type Requirement struct {
	Tier     license.Tier
	Features []string
}

// Tier returns a requirement for a minimum tier.
func Tier(t license.Tier) Requirement {
	return Requirement{Tier: t}
}

// Features returns a requirement for a set of features.
func Features(features ...string) Requirement {
	return Requirement{Features: features}
}

// Evaluate checks ve against r, tier first. It returns nil when allowed,
// otherwise a typed denial matching ErrAccessDenied.
func (r Requirement) Evaluate(ve *license.ValidatedEntitlement) error {
	if ve == nil {
		return ErrNoEntitlement
	}
	if r.Tier != "" {
		if err := RequireTier(ve, r.Tier); err != nil {
			return err
		}
	}
	if len(r.Features) > 0 {
		return CheckFeatures(ve, r.Features).Err()
	}
	return nil
}
