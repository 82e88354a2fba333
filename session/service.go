package session

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goEntitle/jwt"
	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Config configures a [Service].
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	// ClockSkew bounds how far in the future iat may be.
	ClockSkew time.Duration
	Now       func() time.Time
}

// Service issues and verifies access and refresh tokens.
//
// Service is safe for concurrent use.
type Service struct {
	cfg     Config
	codec   *jwt.Codec
	access  jwt.Expect
	refresh jwt.Expect
}

// NewService validates cfg and returns a ready service. Identical access and
// refresh secrets are rejected.
func NewService(cfg Config) (*Service, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, ErrMissingSecret
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, ErrSecretsNotDistinct
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, ErrInvalidTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.AccessSecret = bytes.Clone(cfg.AccessSecret)
	cfg.RefreshSecret = bytes.Clone(cfg.RefreshSecret)

	opts := []jwt.Option{jwt.WithClock(cfg.Now)}
	if cfg.ClockSkew > 0 {
		opts = append(opts, jwt.WithClockSkew(cfg.ClockSkew))
	}

	return &Service{
		cfg:     cfg,
		codec:   jwt.NewCodec(opts...),
		access:  jwt.Expect{Issuer: cfg.Issuer, Audience: cfg.Audience, Type: TypeAccess},
		refresh: jwt.Expect{Issuer: cfg.Issuer, Audience: cfg.Audience, Type: TypeRefresh},
	}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (s *Service) AccessTTL() time.Duration { return s.cfg.AccessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (s *Service) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

// IssueAccessToken signs an access token for id valid for the access TTL.
func (s *Service) IssueAccessToken(id IdentityClaims) (string, error) {
	if id.SubjectID == "" || id.TenantID == "" {
		return "", ErrInvalidIdentity
	}
	now := s.cfg.Now()
	claims := &accessClaims{
		Type:             TypeAccess,
		TenantID:         id.TenantID,
		Email:            id.Email,
		Role:             id.Role,
		Tier:             id.Tier,
		Permissions:      id.Permissions,
		RegisteredClaims: s.registered(id.SubjectID, "", now, s.cfg.AccessTTL),
	}
	return s.codec.Sign(claims, s.cfg.AccessSecret)
}

// IssueRefreshToken signs a refresh token in familyID with a fresh token id.
func (s *Service) IssueRefreshToken(subjectID, tenantID, familyID string) (string, error) {
	token, _, err := s.IssueRefreshGrant(subjectID, tenantID, familyID)
	return token, err
}

// IssueRefreshGrant is IssueRefreshToken that also returns the grant, so
// callers can record the token id without re-parsing.
func (s *Service) IssueRefreshGrant(subjectID, tenantID, familyID string) (string, *RefreshGrant, error) {
	if subjectID == "" || tenantID == "" || familyID == "" {
		return "", nil, ErrInvalidIdentity
	}
	jti, err := uuid.NewRandom()
	if err != nil {
		return "", nil, fmt.Errorf("generate token id: %w", err)
	}
	now := s.cfg.Now()
	claims := &refreshClaims{
		Type:             TypeRefresh,
		TenantID:         tenantID,
		FamilyID:         familyID,
		RegisteredClaims: s.registered(subjectID, jti.String(), now, s.cfg.RefreshTTL),
	}
	token, err := s.codec.Sign(claims, s.cfg.RefreshSecret)
	if err != nil {
		return "", nil, err
	}
	return token, grantFromClaims(claims), nil
}

// IssueTokenPair issues an access token and a refresh token in familyID.
func (s *Service) IssueTokenPair(id IdentityClaims, familyID string) (TokenPair, error) {
	access, err := s.IssueAccessToken(id)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, grant, err := s.IssueRefreshGrant(id.SubjectID, id.TenantID, familyID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessTTL / time.Second),
		FamilyID:     familyID,
		RefreshID:    grant.TokenID,
	}, nil
}

// VerifyAccessToken verifies an access token. A refresh token fails with
// ErrTokenTypeInvalid rather than a plain signature error.
func (s *Service) VerifyAccessToken(token string) (*Identity, error) {
	claims, err := jwt.Verify[accessClaims](s.codec, token, s.cfg.AccessSecret, s.access)
	if err != nil {
		return nil, s.crossCheck(err, token, s.cfg.RefreshSecret)
	}
	if claims.Subject == "" || claims.TenantID == "" {
		return nil, fmt.Errorf("%w: subject or tenant missing", ErrTokenInvalid)
	}
	return &Identity{
		SubjectID:   claims.Subject,
		TenantID:    claims.TenantID,
		Email:       claims.Email,
		Role:        claims.Role,
		Tier:        claims.Tier,
		Permissions: claims.Permissions,
		IssuedAt:    numericTime(claims.IssuedAt),
		ExpiresAt:   numericTime(claims.ExpiresAt),
	}, nil
}

// VerifyRefreshToken verifies a refresh token. An access token fails with
// ErrTokenTypeInvalid.
func (s *Service) VerifyRefreshToken(token string) (*RefreshGrant, error) {
	claims, err := jwt.Verify[refreshClaims](s.codec, token, s.cfg.RefreshSecret, s.refresh)
	if err != nil {
		return nil, s.crossCheck(err, token, s.cfg.AccessSecret)
	}
	if claims.Subject == "" || claims.TenantID == "" || claims.FamilyID == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: refresh claims incomplete", ErrTokenInvalid)
	}
	return grantFromClaims(claims), nil
}

// crossCheck turns a signature failure into ErrTokenTypeInvalid when the
// token is genuine under the other secret.
func (s *Service) crossCheck(err error, token string, other []byte) error {
	if errors.Is(err, jwt.ErrSignatureInvalid) && s.codec.SignatureValid(token, other) {
		return ErrTokenTypeInvalid
	}
	return err
}

func (s *Service) registered(subject, id string, now time.Time, ttl time.Duration) gjwt.RegisteredClaims {
	rc := gjwt.RegisteredClaims{
		Subject:   subject,
		ID:        id,
		Issuer:    s.cfg.Issuer,
		IssuedAt:  gjwt.NewNumericDate(now),
		ExpiresAt: gjwt.NewNumericDate(now.Add(ttl)),
	}
	if s.cfg.Audience != "" {
		rc.Audience = gjwt.ClaimStrings{s.cfg.Audience}
	}
	return rc
}

func grantFromClaims(c *refreshClaims) *RefreshGrant {
	return &RefreshGrant{
		SubjectID: c.Subject,
		TenantID:  c.TenantID,
		FamilyID:  c.FamilyID,
		TokenID:   c.ID,
		IssuedAt:  numericTime(c.IssuedAt),
		ExpiresAt: numericTime(c.ExpiresAt),
	}
}

// GenerateFamilyID returns a new rotation family id. The id is a version 7
// UUID: a millisecond timestamp followed by random bits.
func GenerateFamilyID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate family id: %w", err)
	}
	return id.String(), nil
}
