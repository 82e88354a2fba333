package goEntitle

import (
	"context"

	"github.com/MrEthical07/goEntitle/license"
	"github.com/MrEthical07/goEntitle/session"
)

type clientIPContextKey struct{}
type identityContextKey struct{}
type entitlementContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx for audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithIdentity attaches a verified identity to ctx.
func WithIdentity(ctx context.Context, id *session.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity set by [WithIdentity].
func IdentityFromContext(ctx context.Context) (*session.Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	id, ok := ctx.Value(identityContextKey{}).(*session.Identity)
	return id, ok && id != nil
}

// WithEntitlement attaches a validated entitlement to ctx.
func WithEntitlement(ctx context.Context, ve *license.ValidatedEntitlement) context.Context {
	return context.WithValue(ctx, entitlementContextKey{}, ve)
}

// EntitlementFromContext returns the entitlement set by [WithEntitlement].
func EntitlementFromContext(ctx context.Context) (*license.ValidatedEntitlement, bool) {
	if ctx == nil {
		return nil, false
	}
	ve, ok := ctx.Value(entitlementContextKey{}).(*license.ValidatedEntitlement)
	return ve, ok && ve != nil
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
