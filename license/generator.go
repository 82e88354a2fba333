package license

import (
	"bytes"
	"fmt"
	"maps"
	"time"

	"github.com/MrEthical07/goEntitle/jwt"
)

const day = 24 * time.Hour

// Trial and demo grants.
const (
	TrialDays        = 30
	TrialMaxUsers    = 3
	TrialMaxProducts = 100

	DemoDays        = 90
	DemoMaxUsers    = 10
	DemoMaxProducts = 1000
)

// Options describes a grant to generate.
type Options struct {
	EntitlementID string
	TenantID      string
	IssuedTo      string
	Tier          Tier
	DurationDays  int
	// StartsAt defaults to now. It becomes the grant's iat.
	StartsAt time.Time
	// MaxUsers and MaxProducts default to the tier's limits when nil.
	MaxUsers    *int
	MaxProducts *int
	// Features overrides tier defaults; entries win in both directions.
	Features map[string]bool
}

// UpgradeOptions tunes [Generator.Upgrade]. Zero values leave the field alone.
type UpgradeOptions struct {
	AdditionalDays int
	MaxUsers       *int
	MaxProducts    *int
}

// Generator composes and signs entitlement tokens.
type Generator struct {
	secret []byte
	codec  *jwt.Codec
	cfg    settings
}

// NewGenerator returns a generator signing with secret.
func NewGenerator(secret []byte, opts ...Option) (*Generator, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	cfg := newSettings(opts)
	return &Generator{
		secret: bytes.Clone(secret),
		codec:  jwt.NewCodec(jwt.WithClock(cfg.now)),
		cfg:    cfg,
	}, nil
}

// Generate signs a grant built from opts.
func (g *Generator) Generate(opts Options) (string, error) {
	grant, err := g.compose(opts)
	if err != nil {
		return "", err
	}
	return g.sign(grant)
}

// GenerateTrial signs a 30-day basic grant with 3 users and 100 products.
func (g *Generator) GenerateTrial(entitlementID, tenantID string) (string, error) {
	return g.Generate(Options{
		EntitlementID: entitlementID,
		TenantID:      tenantID,
		Tier:          TierBasic,
		DurationDays:  TrialDays,
		MaxUsers:      Int(TrialMaxUsers),
		MaxProducts:   Int(TrialMaxProducts),
	})
}

// GenerateDemo signs a 90-day professional grant with 10 users and 1000 products.
func (g *Generator) GenerateDemo(entitlementID, tenantID string) (string, error) {
	return g.Generate(Options{
		EntitlementID: entitlementID,
		TenantID:      tenantID,
		IssuedTo:      "Demo",
		Tier:          TierProfessional,
		DurationDays:  DemoDays,
		MaxUsers:      Int(DemoMaxUsers),
		MaxProducts:   Int(DemoMaxProducts),
	})
}

// Extend pushes the expiry of token back by additionalDays and re-signs it.
//
// The signature of token is not checked: Extend is an operator tool that
// reissues under the generator's own key.
func (g *Generator) Extend(token string, additionalDays int) (string, error) {
	if additionalDays <= 0 {
		return "", fmt.Errorf("%w: additional days must be positive", ErrInvalidOptions)
	}
	grant, err := decodeGrant(token)
	if err != nil {
		return "", err
	}
	grant.ExpiresAt = grant.ExpiresAt.Add(time.Duration(additionalDays) * day)
	return g.sign(grant)
}

// Upgrade moves token to newTier. The feature map is reset to the new tier's
// defaults. Limits take the explicit value when given, otherwise the higher
// of the existing limit and the new tier's default; an unbounded product
// limit stays unbounded. The issue time is kept.
func (g *Generator) Upgrade(token string, newTier Tier, opts UpgradeOptions) (string, error) {
	if !newTier.Valid() {
		return "", fmt.Errorf("%w: unknown tier %q", ErrInvalidOptions, newTier)
	}
	if opts.AdditionalDays < 0 {
		return "", fmt.Errorf("%w: additional days must not be negative", ErrInvalidOptions)
	}
	if err := checkLimits(opts.MaxUsers, opts.MaxProducts); err != nil {
		return "", err
	}
	grant, err := decodeGrant(token)
	if err != nil {
		return "", err
	}
	if newTier.Rank() < grant.Tier.Rank() {
		return "", fmt.Errorf("%w: cannot move from %s down to %s", ErrInvalidOptions, grant.Tier, newTier)
	}

	defaults := DefaultLimits(newTier)
	limits := Limits{MaxUsers: max(grant.Limits.MaxUsers, defaults.MaxUsers)}
	if opts.MaxUsers != nil {
		limits.MaxUsers = *opts.MaxUsers
	}
	switch {
	case opts.MaxProducts != nil:
		limits.MaxProducts = Int(*opts.MaxProducts)
	case grant.Limits.MaxProducts == nil || defaults.MaxProducts == nil:
		limits.MaxProducts = nil
	default:
		limits.MaxProducts = Int(max(*grant.Limits.MaxProducts, *defaults.MaxProducts))
	}

	grant.Tier = newTier
	grant.Features = DefaultFeatures(newTier)
	grant.Limits = limits
	if opts.AdditionalDays > 0 {
		grant.ExpiresAt = grant.ExpiresAt.Add(time.Duration(opts.AdditionalDays) * day)
	}
	return g.sign(grant)
}

func (g *Generator) compose(opts Options) (Grant, error) {
	if opts.EntitlementID == "" || opts.TenantID == "" {
		return Grant{}, fmt.Errorf("%w: entitlement and tenant ids are required", ErrInvalidOptions)
	}
	if !opts.Tier.Valid() {
		return Grant{}, fmt.Errorf("%w: unknown tier %q", ErrInvalidOptions, opts.Tier)
	}
	if opts.DurationDays <= 0 {
		return Grant{}, fmt.Errorf("%w: duration must be positive", ErrInvalidOptions)
	}
	if err := checkLimits(opts.MaxUsers, opts.MaxProducts); err != nil {
		return Grant{}, err
	}

	starts := opts.StartsAt
	if starts.IsZero() {
		starts = g.cfg.now()
	}
	limits := DefaultLimits(opts.Tier)
	if opts.MaxUsers != nil {
		limits.MaxUsers = *opts.MaxUsers
	}
	if opts.MaxProducts != nil {
		limits.MaxProducts = Int(*opts.MaxProducts)
	}

	return Grant{
		EntitlementID: opts.EntitlementID,
		TenantID:      opts.TenantID,
		IssuedTo:      opts.IssuedTo,
		Tier:          opts.Tier,
		Features:      MergeFeatures(opts.Tier, maps.Clone(opts.Features)),
		Limits:        limits,
		IssuedAt:      starts,
		ExpiresAt:     starts.Add(time.Duration(opts.DurationDays) * day),
	}, nil
}

func (g *Generator) sign(grant Grant) (string, error) {
	return g.codec.Sign(claimsFromGrant(grant, g.cfg.issuer), g.secret)
}

func decodeGrant(token string) (Grant, error) {
	claims, err := jwt.Decode[licenseClaims](token)
	if err != nil {
		return Grant{}, fmt.Errorf("%w: %v", ErrInvalidLicenseKey, err)
	}
	grant, ok := claims.grant()
	if !ok {
		return Grant{}, fmt.Errorf("%w: incomplete grant", ErrInvalidLicenseKey)
	}
	return grant, nil
}

func checkLimits(users, products *int) error {
	if users != nil && *users < 0 {
		return fmt.Errorf("%w: max users must not be negative", ErrInvalidOptions)
	}
	if products != nil && *products < 0 {
		return fmt.Errorf("%w: max products must not be negative", ErrInvalidOptions)
	}
	return nil
}
