package goEntitle

import (
	"context"

	"github.com/MrEthical07/goEntitle/session"
)

// IdentityProvider resolves the current claims of a subject. The engine calls
// it on refresh so role, tier and permission changes reach the next access
// token without a new login.
type IdentityProvider interface {
	LoadIdentity(ctx context.Context, tenantID, subjectID string) (session.IdentityClaims, error)
}

// IdentityProviderFunc adapts a function to [IdentityProvider].
type IdentityProviderFunc func(ctx context.Context, tenantID, subjectID string) (session.IdentityClaims, error)

func (f IdentityProviderFunc) LoadIdentity(ctx context.Context, tenantID, subjectID string) (session.IdentityClaims, error) {
	return f(ctx, tenantID, subjectID)
}

// EntitlementSource returns the raw license token stored for a tenant, or
// [ErrNoEntitlement] when there is none.
type EntitlementSource interface {
	LicenseToken(ctx context.Context, tenantID string) (string, error)
}
