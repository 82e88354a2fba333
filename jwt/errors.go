package jwt

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenMissing is returned for an empty token string.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenMalformed is returned when the token is not three non-empty
	// dot-separated segments or a segment cannot be decoded.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenInvalid is the root of every integrity or claim failure.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned once exp is reached.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenTypeInvalid is returned when the type discriminant differs from the expected one.
	ErrTokenTypeInvalid = errors.New("token type invalid")
	// ErrMissingSecret is returned when signing or verifying with an empty key.
	ErrMissingSecret = errors.New("signing secret missing")

	// ErrSignatureInvalid marks an HMAC mismatch or an undecodable signature segment.
	ErrSignatureInvalid = fmt.Errorf("%w: signature mismatch", ErrTokenInvalid)
	// ErrTokenIssuedInFuture marks an iat later than now plus the allowed skew.
	ErrTokenIssuedInFuture = fmt.Errorf("%w: issued in the future", ErrTokenInvalid)
	// ErrClaimMismatch marks an issuer or audience that differs from the expected one.
	ErrClaimMismatch = fmt.Errorf("%w: claim mismatch", ErrTokenInvalid)
	// ErrMissingClaim marks a token without a required registered claim.
	ErrMissingClaim = fmt.Errorf("%w: required claim missing", ErrTokenInvalid)
)
