package session

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TypeAccess tags access tokens.
	TypeAccess = "access"
	// TypeRefresh tags refresh tokens.
	TypeRefresh = "refresh"
)

// IdentityClaims is the input for access-token issuance.
type IdentityClaims struct {
	SubjectID   string
	TenantID    string
	Email       string
	Role        string
	Tier        string
	Permissions []string
}

// Identity is a verified access token. It is request scoped and never mutated.
type Identity struct {
	SubjectID   string
	TenantID    string
	Email       string
	Role        string
	Tier        string
	Permissions []string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// HasPermission reports whether the identity was issued with permission p.
func (i *Identity) HasPermission(p string) bool {
	return i != nil && slices.Contains(i.Permissions, p)
}

// RefreshGrant is a verified refresh token.
type RefreshGrant struct {
	SubjectID string
	TenantID  string
	FamilyID  string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair is returned on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	// ExpiresIn is the access-token lifetime in seconds.
	ExpiresIn int64 `json:"expiresIn"`

	FamilyID  string `json:"-"`
	RefreshID string `json:"-"`
}

type accessClaims struct {
	Type        string   `json:"type"`
	TenantID    string   `json:"tenantId"`
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role,omitempty"`
	Tier        string   `json:"tier,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

func (c *accessClaims) TokenType() string { return c.Type }

type refreshClaims struct {
	Type     string `json:"type"`
	TenantID string `json:"tenantId"`
	FamilyID string `json:"familyId"`
	jwt.RegisteredClaims
}

func (c *refreshClaims) TokenType() string { return c.Type }

func numericTime(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
