package guard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goEntitle/license"
)

func entitlement(tier license.Tier, overrides map[string]bool) *license.ValidatedEntitlement {
	return &license.ValidatedEntitlement{
		Grant: license.Grant{
			EntitlementID: "ent-1",
			TenantID:      "tenant-1",
			Tier:          tier,
			Features:      license.MergeFeatures(tier, overrides),
			Limits:        license.DefaultLimits(tier),
		},
		DaysRemaining: 30,
	}
}

func TestRequireFeatureNamesRequiredTier(t *testing.T) {
	err := RequireFeature(entitlement(license.TierBasic, nil), license.FeatureDemandForecasting)
	require.ErrorIs(t, err, ErrAccessDenied)

	var denied *FeatureNotAvailableError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, []string{license.FeatureDemandForecasting}, denied.Missing)
	require.Equal(t, license.TierProfessional, denied.RequiredTier)
	require.Equal(t, license.TierBasic, denied.CurrentTier)
	require.Contains(t, err.Error(), "Professional")

	require.NoError(t, RequireFeature(entitlement(license.TierProfessional, nil), license.FeatureDemandForecasting))
}

func TestRequireFeatureHonorsOverrides(t *testing.T) {
	ve := entitlement(license.TierBasic, map[string]bool{license.FeatureSSO: true, license.FeatureInvoicing: false})
	require.NoError(t, RequireFeature(ve, license.FeatureSSO))

	err := RequireFeature(ve, license.FeatureInvoicing)
	var denied *FeatureNotAvailableError
	require.ErrorAs(t, err, &denied)
	require.Empty(t, denied.RequiredTier, "no upgrade restores an overridden feature")
	require.EqualError(t, err, "feature invoicing disabled for this license")
}

func TestCheckFeaturesIgnoresOverriddenTierForUpgrade(t *testing.T) {
	ve := entitlement(license.TierEnterprise, map[string]bool{license.FeatureInvoicing: false})
	res := CheckFeatures(ve, []string{license.FeatureInvoicing, license.FeatureSSO})
	require.False(t, res.Allowed)
	require.Equal(t, []string{license.FeatureInvoicing}, res.Missing)
	require.Empty(t, res.RequiredTier)
	require.NotContains(t, res.Err().Error(), "requires")

	// A tier gap still names the upgrade, overridden features do not lower it.
	basic := entitlement(license.TierBasic, map[string]bool{license.FeatureInvoicing: false})
	res = CheckFeatures(basic, []string{license.FeatureInvoicing, license.FeatureDemandForecasting})
	require.Equal(t, []string{license.FeatureInvoicing, license.FeatureDemandForecasting}, res.Missing)
	require.Equal(t, license.TierProfessional, res.RequiredTier)
}

func TestRequireTier(t *testing.T) {
	tests := []struct {
		current, required license.Tier
		allowed           bool
	}{
		{license.TierBasic, license.TierBasic, true},
		{license.TierBasic, license.TierProfessional, false},
		{license.TierBasic, license.TierEnterprise, false},
		{license.TierProfessional, license.TierBasic, true},
		{license.TierProfessional, license.TierEnterprise, false},
		{license.TierEnterprise, license.TierProfessional, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.current)+"->"+string(tt.required), func(t *testing.T) {
			err := RequireTier(entitlement(tt.current, nil), tt.required)
			if tt.allowed {
				require.NoError(t, err)
				return
			}
			var denied *TierInsufficientError
			require.ErrorAs(t, err, &denied)
			require.Equal(t, tt.required, denied.Required)
			require.Equal(t, tt.current, denied.Current)
			require.ErrorIs(t, err, ErrAccessDenied)
		})
	}
}

func TestRequireLimits(t *testing.T) {
	basic := entitlement(license.TierBasic, nil)
	require.NoError(t, RequireUserLimit(basic, 4))

	err := RequireUserLimit(basic, 5)
	var limit *LimitExceededError
	require.ErrorAs(t, err, &limit)
	require.Equal(t, LimitUsers, limit.LimitType)
	require.Equal(t, 5, limit.Current)
	require.Equal(t, 5, limit.Max)
	require.ErrorIs(t, err, ErrAccessDenied)

	err = RequireProductLimit(basic, 500)
	require.ErrorAs(t, err, &limit)
	require.Equal(t, LimitProducts, limit.LimitType)
	require.Equal(t, 500, limit.Max)

	require.NoError(t, RequireProductLimit(entitlement(license.TierEnterprise, nil), 1_000_000))
}

func TestNilEntitlementDenies(t *testing.T) {
	require.ErrorIs(t, RequireTier(nil, license.TierBasic), ErrNoEntitlement)
	require.ErrorIs(t, RequireFeature(nil, license.FeatureInvoicing), ErrNoEntitlement)
	require.ErrorIs(t, RequireUserLimit(nil, 0), ErrNoEntitlement)
	require.ErrorIs(t, RequireProductLimit(nil, 0), ErrNoEntitlement)
	require.ErrorIs(t, Requirement{}.Evaluate(nil), ErrAccessDenied)
	require.ErrorIs(t, CheckTiers(nil, nil).Err(), ErrNoEntitlement)
}

func TestCheckTiersUsesLowestAcceptable(t *testing.T) {
	ve := entitlement(license.TierProfessional, nil)

	res := CheckTiers(ve, []license.Tier{license.TierEnterprise, license.TierProfessional})
	require.True(t, res.Allowed)
	require.Equal(t, license.TierProfessional, res.RequiredTier)
	require.NoError(t, res.Err())

	res = CheckTiers(entitlement(license.TierBasic, nil), []license.Tier{license.TierEnterprise, license.TierProfessional, "gold"})
	require.False(t, res.Allowed)
	require.Equal(t, license.TierProfessional, res.RequiredTier)
	var denied *TierInsufficientError
	require.ErrorAs(t, res.Err(), &denied)
	require.Equal(t, license.TierProfessional, denied.Required)

	require.True(t, CheckTiers(ve, nil).Allowed)
}

func TestCheckFeaturesUnionAndHighestTier(t *testing.T) {
	ve := entitlement(license.TierBasic, nil)
	res := CheckFeatures(ve, []string{
		license.FeatureInvoicing,
		license.FeatureEInvoicing,
		license.FeatureSSO,
		license.FeatureEInvoicing,
	})
	require.False(t, res.Allowed)
	require.Equal(t, []string{license.FeatureEInvoicing, license.FeatureSSO}, res.Missing)
	require.Equal(t, license.TierEnterprise, res.RequiredTier)
	require.Equal(t, license.TierBasic, res.CurrentTier)

	var denied *FeatureNotAvailableError
	require.ErrorAs(t, res.Err(), &denied)
	require.Len(t, denied.Missing, 2)
	require.Contains(t, denied.Error(), "features eInvoicing, sso")

	res = CheckFeatures(entitlement(license.TierEnterprise, nil), []string{license.FeatureSSO, license.FeatureInvoicing})
	require.True(t, res.Allowed)
	require.Empty(t, res.Missing)
}

func TestRequirementEvaluate(t *testing.T) {
	basic := entitlement(license.TierBasic, map[string]bool{license.FeatureSSO: true})

	// Tier is checked before features.
	err := Requirement{Tier: license.TierProfessional, Features: []string{license.FeatureAuditTrail}}.Evaluate(basic)
	var tierErr *TierInsufficientError
	require.ErrorAs(t, err, &tierErr)

	err = Features(license.FeatureSSO, license.FeatureAuditTrail).Evaluate(basic)
	var featErr *FeatureNotAvailableError
	require.ErrorAs(t, err, &featErr)
	require.Equal(t, []string{license.FeatureAuditTrail}, featErr.Missing)

	require.NoError(t, Features(license.FeatureSSO).Evaluate(basic))
	require.NoError(t, Tier(license.TierBasic).Evaluate(basic))
	require.NoError(t, Requirement{}.Evaluate(basic))
}

func TestUpgradeSuggestion(t *testing.T) {
	s := UpgradeSuggestion(license.TierBasic, license.FeatureDemandForecasting)
	require.NotNil(t, s)
	require.Equal(t, license.TierProfessional, s.SuggestedTier)
	require.Contains(t, s.Message, "Professional")

	s = UpgradeSuggestion(license.TierProfessional, license.FeatureAIChatAssistant)
	require.NotNil(t, s)
	require.Equal(t, license.TierEnterprise, s.SuggestedTier)

	s = UpgradeSuggestion(license.TierBasic, "somethingNew")
	require.NotNil(t, s)
	require.Equal(t, license.TierEnterprise, s.SuggestedTier)
	require.Equal(t, "Upgrade to Enterprise to unlock somethingNew.", s.Message)

	require.Nil(t, UpgradeSuggestion(license.TierProfessional, license.FeatureInvoicing))
	require.Nil(t, UpgradeSuggestion(license.TierEnterprise, license.FeatureSSO))
}

func TestSuggestionsSortedByPriority(t *testing.T) {
	all := Suggestions(entitlement(license.TierBasic, nil))
	require.Len(t, all, 12)
	require.Equal(t, license.FeatureDemandForecasting, all[0].Feature)
	for i := 1; i < len(all); i++ {
		require.LessOrEqual(t, all[i-1].Priority, all[i].Priority)
	}

	pro := Suggestions(entitlement(license.TierProfessional, nil))
	require.Len(t, pro, 6)
	for _, s := range pro {
		require.Equal(t, license.TierEnterprise, s.SuggestedTier)
	}

	require.Empty(t, Suggestions(entitlement(license.TierEnterprise, nil)))
}

func TestEveryGatedFeatureHasReason(t *testing.T) {
	for _, f := range license.AllFeatures() {
		if license.RequiredTier(f) == license.TierBasic {
			continue
		}
		_, ok := reasonByFeature[f]
		require.True(t, ok, "missing upgrade reason for %s", f)
	}
}

func TestDenialsAreDistinct(t *testing.T) {
	errs := []error{
		&TierInsufficientError{Required: license.TierEnterprise, Current: license.TierBasic},
		&FeatureNotAvailableError{Missing: []string{"x"}, RequiredTier: license.TierEnterprise},
		&LimitExceededError{LimitType: LimitUsers, Current: 1, Max: 1},
	}
	for _, err := range errs {
		require.True(t, errors.Is(err, ErrAccessDenied))
		require.False(t, errors.Is(err, ErrNoEntitlement))
	}
}
