package license

import (
	"fmt"
	"strings"
)

// Tier is a subscription level. The zero value is not a valid tier.
type Tier string

const (
	TierBasic        Tier = "basic"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
)

// Tiers lists every tier from lowest to highest.
var Tiers = []Tier{TierBasic, TierProfessional, TierEnterprise}

var tierRanks = map[Tier]int{
	TierBasic:        1,
	TierProfessional: 2,
	TierEnterprise:   3,
}

// Rank orders tiers: 1 for basic up to 3 for enterprise, 0 for unknown values.
func (t Tier) Rank() int {
	return tierRanks[t]
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t.Rank() > 0
}

// AtLeast reports whether t is required or higher. Unknown tiers satisfy nothing.
func (t Tier) AtLeast(required Tier) bool {
	return t.Valid() && t.Rank() >= required.Rank()
}

func (t Tier) String() string {
	return string(t)
}

// DisplayName is the user-facing tier name.
func (t Tier) DisplayName() string {
	switch t {
	case TierBasic:
		return "Basic"
	case TierProfessional:
		return "Professional"
	case TierEnterprise:
		return "Enterprise"
	default:
		return "Unknown"
	}
}

// ParseTier accepts a tier name in any case.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown tier %q", ErrInvalidOptions, s)
	}
	return t, nil
}

// MaxTier returns the higher of a and b.
func MaxTier(a, b Tier) Tier {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}
