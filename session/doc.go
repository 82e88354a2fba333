// Package session issues and verifies short-lived session credentials.
//
// # Tokens
//
// Access and refresh tokens are HS256 compact tokens signed with two distinct
// secrets and tagged with a "type" claim. A token of one kind is never
// accepted in place of the other.
//
// # Rotation families
//
// Every login starts a rotation family. Each refresh token in the family
// carries a fresh token id; [FamilyStore] remembers the latest one in Redis.
// Presenting an older token id from the same family means the family leaked,
// so the whole family is revoked.
//
// # Architecture boundaries
//
// This package owns token issuance, verification and the family record. It
// does NOT evaluate entitlements or permissions. Those belong to the license
// and guard packages and to the Engine.
package session
