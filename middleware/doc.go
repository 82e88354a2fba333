// Package middleware adapts an engine to net/http.
//
// [Authenticate] verifies the bearer access token and puts the identity in
// the request context. [RequireEntitlement] (and the [RequireTier] and
// [RequireFeature] shorthands) resolves the caller's tenant entitlement,
// evaluates a declared [guard.Requirement] and puts the entitlement in the
// context. [RequirePermission] checks a permission on the identity.
//
// Refusals are JSON bodies with an "error" code. Tier and feature denials
// answer 402 and carry an upgrade suggestion.
//
// The package makes no decisions of its own; verification, caching and
// guard evaluation stay in the engine.
package middleware
