package middleware

import (
	"errors"
	"net/http"

	goEntitle "github.com/MrEthical07/goEntitle"
	"github.com/MrEthical07/goEntitle/guard"
	"github.com/MrEthical07/goEntitle/license"
	"github.com/rs/zerolog"
)

// RequireEntitlement resolves the caller's tenant entitlement and checks it
// against req. On success the entitlement is stored in the request context.
// It must run after Authenticate.
//
// Tier and feature denials, a missing entitlement and an expired one answer
// 402 Payment Required with an upgrade hint. Other failures use
// [goEntitle.HTTPStatus].
func RequireEntitlement(engine *goEntitle.Engine, req guard.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := goEntitle.IdentityFromContext(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			if engine == nil {
				writeError(w, r, http.StatusInternalServerError, "internal_error", "entitlements unavailable")
				return
			}

			ve, err := engine.Require(r.Context(), id.TenantID, req)
			if err != nil {
				writeDenial(w, r, ve, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(goEntitle.WithEntitlement(r.Context(), ve)))
		})
	}
}

// RequireTier is RequireEntitlement for a minimum tier.
func RequireTier(engine *goEntitle.Engine, tier license.Tier) func(http.Handler) http.Handler {
	return RequireEntitlement(engine, guard.Tier(tier))
}

// RequireFeature is RequireEntitlement for a set of features.
func RequireFeature(engine *goEntitle.Engine, features ...string) func(http.Handler) http.Handler {
	return RequireEntitlement(engine, guard.Features(features...))
}

// denial is the JSON body for a refused entitlement check.
type denial struct {
	Error        string            `json:"error"`
	Message      string            `json:"message"`
	CurrentTier  license.Tier      `json:"current_tier,omitempty"`
	RequiredTier license.Tier      `json:"required_tier,omitempty"`
	Missing      []string          `json:"missing_features,omitempty"`
	Upgrade      *guard.Suggestion `json:"upgrade,omitempty"`
}

func writeDenial(w http.ResponseWriter, r *http.Request, ve *license.ValidatedEntitlement, err error) {
	var (
		tierErr    *guard.TierInsufficientError
		featureErr *guard.FeatureNotAvailableError
		limitErr   *guard.LimitExceededError
	)

	switch {
	case errors.As(err, &tierErr):
		writeJSON(w, r, http.StatusPaymentRequired, denial{
			Error:        "tier_insufficient",
			Message:      err.Error(),
			CurrentTier:  tierErr.Current,
			RequiredTier: tierErr.Required,
			Upgrade:      tierSuggestion(ve, tierErr.Required),
		})
	case errors.As(err, &featureErr):
		body := denial{
			Error:        "feature_unavailable",
			Message:      err.Error(),
			CurrentTier:  featureErr.CurrentTier,
			RequiredTier: featureErr.RequiredTier,
			Missing:      featureErr.Missing,
		}
		for _, f := range featureErr.Missing {
			if body.Upgrade = guard.UpgradeSuggestion(featureErr.CurrentTier, f); body.Upgrade != nil {
				break
			}
		}
		writeJSON(w, r, http.StatusPaymentRequired, body)
	case errors.As(err, &limitErr):
		writeError(w, r, http.StatusForbidden, "limit_exceeded", err.Error())
	case errors.Is(err, goEntitle.ErrNoEntitlement):
		writeError(w, r, http.StatusPaymentRequired, "license_required", "no active entitlement for this tenant")
	case errors.Is(err, goEntitle.ErrLicenseExpired):
		writeError(w, r, http.StatusPaymentRequired, "license_expired", "the entitlement has expired")
	default:
		status := goEntitle.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("entitlement check failed")
			writeError(w, r, status, "internal_error", "entitlement check failed")
			return
		}
		writeError(w, r, status, "license_invalid", "the entitlement is not valid")
	}
}

// tierSuggestion picks the highest-priority feature that the required tier
// is the first to unlock.
func tierSuggestion(ve *license.ValidatedEntitlement, required license.Tier) *guard.Suggestion {
	for _, s := range guard.Suggestions(ve) {
		if s.SuggestedTier == required {
			return &s
		}
	}
	return nil
}
