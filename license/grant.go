package license

import (
	"math"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Grant is the decoded payload of an entitlement token.
type Grant struct {
	EntitlementID string
	TenantID      string
	IssuedTo      string
	Tier          Tier
	// Features is total over the feature table at issuance time.
	Features  map[string]bool
	Limits    Limits
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasFeature reports whether the grant enables feature. Features absent from
// the map fall back to the tier default.
func (g *Grant) HasFeature(feature string) bool {
	if g == nil {
		return false
	}
	if enabled, ok := g.Features[feature]; ok {
		return enabled
	}
	return TierIncludes(g.Tier, feature)
}

// EnabledFeatures lists every enabled feature, in table order followed by
// any extra overrides.
func (g *Grant) EnabledFeatures() []string {
	if g == nil {
		return nil
	}
	out := make([]string, 0, len(g.Features))
	seen := make(map[string]struct{}, len(g.Features))
	for _, f := range enterpriseFeatures {
		seen[f] = struct{}{}
		if g.HasFeature(f) {
			out = append(out, f)
		}
	}
	for f, enabled := range g.Features {
		if _, ok := seen[f]; !ok && enabled {
			out = append(out, f)
		}
	}
	return out
}

// ValidatedEntitlement is a verified grant plus fields derived at
// validation time.
type ValidatedEntitlement struct {
	Grant
	// DaysRemaining is the remaining lifetime in days, rounded up.
	DaysRemaining  int
	IsExpired      bool
	IsExpiringSoon bool
	ValidatedAt    time.Time
}

// ExpiringSoonDays is the window in which IsExpiringSoon is set.
const ExpiringSoonDays = 30

func newValidated(g Grant, now time.Time) *ValidatedEntitlement {
	remaining := g.ExpiresAt.Sub(now)
	days := int(math.Ceil(remaining.Hours() / 24))
	return &ValidatedEntitlement{
		Grant:          g,
		DaysRemaining:  days,
		IsExpired:      days <= 0,
		IsExpiringSoon: days > 0 && days <= ExpiringSoonDays,
		ValidatedAt:    now,
	}
}

// AccessResult is the outcome of a feature or tier check.
type AccessResult struct {
	Allowed      bool
	Reason       string
	RequiredTier Tier
	CurrentTier  Tier
}

// licenseClaims is the wire form of a Grant.
type licenseClaims struct {
	EntitlementID string          `json:"lid"`
	TenantID      string          `json:"tid"`
	IssuedTo      string          `json:"issuedTo,omitempty"`
	Tier          Tier            `json:"tier"`
	Features      map[string]bool `json:"features"`
	Limits        Limits          `json:"limits"`
	jwt.RegisteredClaims
}

func claimsFromGrant(g Grant, issuer string) *licenseClaims {
	return &licenseClaims{
		EntitlementID: g.EntitlementID,
		TenantID:      g.TenantID,
		IssuedTo:      g.IssuedTo,
		Tier:          g.Tier,
		Features:      g.Features,
		Limits:        g.Limits,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ID:        g.EntitlementID,
			IssuedAt:  jwt.NewNumericDate(g.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(g.ExpiresAt),
		},
	}
}

// grant converts wire claims, rejecting payloads that are not a usable grant.
func (c *licenseClaims) grant() (Grant, bool) {
	if c.EntitlementID == "" || c.TenantID == "" || !c.Tier.Valid() ||
		c.IssuedAt == nil || c.ExpiresAt == nil || c.Limits.MaxUsers < 0 ||
		(c.Limits.MaxProducts != nil && *c.Limits.MaxProducts < 0) {
		return Grant{}, false
	}
	features := c.Features
	if features == nil {
		features = DefaultFeatures(c.Tier)
	}
	return Grant{
		EntitlementID: c.EntitlementID,
		TenantID:      c.TenantID,
		IssuedTo:      c.IssuedTo,
		Tier:          c.Tier,
		Features:      features,
		Limits:        c.Limits,
		IssuedAt:      c.IssuedAt.Time,
		ExpiresAt:     c.ExpiresAt.Time,
	}, true
}
