// Package goEntitle authenticates session tokens and decides what a tenant's
// license entitles it to.
//
// An [Engine] combines three concerns behind one surface:
//
//   - Sessions: short-lived HMAC access tokens verified without I/O, and
//     rotating refresh tokens grouped into Redis-tracked families so a
//     replayed refresh token revokes its whole family.
//   - Entitlements: signed license grants (tier, features, limits) per
//     tenant, stored sealed in Redis, validated once and cached per tenant.
//   - Guards: tier, feature and limit requirements evaluated against a
//     validated entitlement, failing with typed errors that match
//     [ErrAccessDenied].
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build].
//
// # Architecture boundaries
//
// The sub-packages jwt, session, license, guard and permission are usable on
// their own. This package wires them, adds audit, metrics and logging, and
// owns the Redis client lifetime only in the sense of key layout; callers
// close the client.
//
// # Performance contract
//
// Authenticate and Authorize are pure CPU. Entitlement costs one Redis read
// on a cache miss and none on a hit. IssueSession, Refresh and Logout are a
// small, fixed number of Redis round trips.
package goEntitle
