// Package license issues and verifies tenant entitlement tokens.
//
// An entitlement token is an HS256 compact token whose payload is a [Grant]:
// the tenant's tier, a total feature map and usage limits. [Generator]
// composes and signs grants; [Validator] verifies them and derives the
// expiry-relative fields of [ValidatedEntitlement]. [Cache] keeps validated
// entitlements per tenant so request paths do not re-verify on every call.
//
// # Tiers
//
// Tiers form a strict ladder: Basic < Professional < Enterprise. A tier
// includes every default capability of the tiers below it. Explicit feature
// overrides in a grant win over tier defaults in both directions.
//
// # Architecture boundaries
//
// This package does NOT authenticate users or decide route access; the guard
// package turns a ValidatedEntitlement into allow or deny decisions.
package license
