package session

import (
	"errors"

	"github.com/MrEthical07/goEntitle/jwt"
)

// Token verification failures, shared with the codec so errors.Is works
// across package boundaries.
var (
	ErrTokenMissing     = jwt.ErrTokenMissing
	ErrTokenMalformed   = jwt.ErrTokenMalformed
	ErrTokenInvalid     = jwt.ErrTokenInvalid
	ErrTokenExpired     = jwt.ErrTokenExpired
	ErrTokenTypeInvalid = jwt.ErrTokenTypeInvalid
)

var (
	// ErrInvalidTimeFormat is returned by ParseTTL for anything but <digits><s|m|h|d>.
	ErrInvalidTimeFormat = errors.New("invalid time format")
	// ErrSecretsNotDistinct is returned when access and refresh secrets are equal.
	ErrSecretsNotDistinct = errors.New("access and refresh secrets must differ")
	// ErrMissingSecret is returned when either signing secret is empty.
	ErrMissingSecret = errors.New("session secret missing")
	// ErrInvalidTTL is returned for non-positive token lifetimes.
	ErrInvalidTTL = errors.New("invalid token ttl")
	// ErrInvalidIdentity is returned when issuing for an empty subject, tenant or family.
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrRedisUnavailable wraps transport failures from the family store.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrFamilyNotFound is returned when the rotation family is unknown or expired.
	ErrFamilyNotFound = errors.New("refresh family not found")
	// ErrFamilyReuse is returned when a superseded refresh token is presented.
	// The family has been revoked by the time the caller sees it.
	ErrFamilyReuse = errors.New("refresh token reuse detected")
)
