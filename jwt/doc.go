// Package jwt signs and verifies the HS256 compact tokens used for both
// session and entitlement credentials.
//
// Verification is strict: three non-empty segments, strict base64url, HS256
// only, and claim checks in a fixed order so callers can rely on which error
// wins when several apply. Keys are supplied per call.
package jwt
