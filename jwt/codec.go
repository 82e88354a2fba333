package jwt

import (
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultClockSkew = time.Minute

// Codec signs and verifies HS256 compact tokens.
//
// A Codec holds no keys. Secrets are passed per call so the same codec serves
// session and entitlement tokens with their independent keys.
type Codec struct {
	now  func() time.Time
	skew time.Duration
}

// Option configures a [Codec].
type Option func(*Codec)

// WithClock overrides the time source used for exp and iat checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithClockSkew sets how far in the future iat may be before the token is
// rejected. Negative values are treated as zero.
func WithClockSkew(d time.Duration) Option {
	return func(c *Codec) {
		if d < 0 {
			d = 0
		}
		c.skew = d
	}
}

// NewCodec returns a codec using the wall clock and a one minute iat skew
// unless overridden.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		now:  time.Now,
		skew: defaultClockSkew,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now returns the codec's current time.
func (c *Codec) Now() time.Time {
	return c.now()
}

// Expect lists the caller's expectations for [Verify].
type Expect struct {
	Issuer   string
	Audience string
	// Type is compared against the claims' TokenType when non-empty.
	Type string
	// SkipExpiry disables the exp check. Entitlement tokens judge expiry
	// themselves so they can report how long ago a grant lapsed.
	SkipExpiry bool
	// AllowFutureIssuedAt disables the iat check. Entitlement tokens may be
	// issued ahead of their start date.
	AllowFutureIssuedAt bool
}

// Typed is implemented by claims carrying a type discriminant.
type Typed interface {
	TokenType() string
}

// Claims is the constraint for claim structs accepted by [Verify] and [Decode].
type Claims[T any] interface {
	*T
	jwt.Claims
}

// Sign serialises claims as an HS256 compact token.
func (c *Codec) Sign(claims jwt.Claims, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", ErrMissingSecret
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// SignatureValid reports whether token carries a valid HS256 signature for
// secret. Claims are not inspected.
func (c *Codec) SignatureValid(token string, secret []byte) bool {
	if len(secret) == 0 || checkStructure(token) != nil {
		return false
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
		jwt.WithStrictDecoding(),
	)
	_, err := parser.Parse(token, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	return err == nil
}

// Verify checks token against secret and expect and returns the decoded
// claims. Checks run in order: presence and structure, signature, expiry,
// issued-at, issuer and audience, then type. On failure no claims are
// returned.
func Verify[T any, PT Claims[T]](c *Codec, token string, secret []byte, expect Expect) (*T, error) {
	if err := checkStructure(token); err != nil {
		return nil, err
	}
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}

	claims := PT(new(T))
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
		jwt.WithStrictDecoding(),
	)
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}); err != nil {
		return nil, classify(err)
	}

	if err := c.checkClaims(claims, expect); err != nil {
		return nil, err
	}
	return (*T)(claims), nil
}

// Decode returns the claims of a structurally valid token without checking
// its signature or any claim.
func Decode[T any, PT Claims[T]](token string) (*T, error) {
	if err := checkStructure(token); err != nil {
		return nil, err
	}
	claims := PT(new(T))
	parser := jwt.NewParser(jwt.WithStrictDecoding())
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	return (*T)(claims), nil
}

func (c *Codec) checkClaims(claims jwt.Claims, expect Expect) error {
	now := c.now()

	if !expect.SkipExpiry {
		exp, err := claims.GetExpirationTime()
		if err != nil || exp == nil {
			return fmt.Errorf("%w: exp", ErrMissingClaim)
		}
		if !now.Before(exp.Time) {
			return ErrTokenExpired
		}
	}

	if !expect.AllowFutureIssuedAt {
		iat, err := claims.GetIssuedAt()
		if err != nil {
			return fmt.Errorf("%w: iat", ErrMissingClaim)
		}
		if iat != nil && iat.Time.After(now.Add(c.skew)) {
			return ErrTokenIssuedInFuture
		}
	}

	if expect.Issuer != "" {
		iss, err := claims.GetIssuer()
		if err != nil || iss != expect.Issuer {
			return fmt.Errorf("%w: iss", ErrClaimMismatch)
		}
	}
	if expect.Audience != "" {
		aud, err := claims.GetAudience()
		if err != nil || !slices.Contains(aud, expect.Audience) {
			return fmt.Errorf("%w: aud", ErrClaimMismatch)
		}
	}

	if expect.Type != "" {
		typed, ok := claims.(Typed)
		if !ok || typed.TokenType() != expect.Type {
			return ErrTokenTypeInvalid
		}
	}
	return nil
}

// checkStructure rejects tokens that are not three non-empty segments and
// tokens whose signature segment is not strict base64url. A corrupted
// signature therefore always reads as an integrity failure.
func checkStructure(token string) error {
	if token == "" {
		return ErrTokenMissing
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return ErrTokenMalformed
	}
	for _, part := range parts {
		if part == "" {
			return ErrTokenMalformed
		}
	}
	if _, err := base64.RawURLEncoding.Strict().DecodeString(parts[2]); err != nil {
		return ErrSignatureInvalid
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrSignatureInvalid):
		return ErrSignatureInvalid
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}
