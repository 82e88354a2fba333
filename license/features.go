package license

import "maps"

// Feature names gated by entitlement tokens. They are embedded in license
// payloads and checked at runtime.
const (
	// Basic tier features
	FeatureInvoicing      = "invoicing"
	FeatureInventory      = "inventory"
	FeatureCustomers      = "customers"
	FeatureBasicReports   = "basicReports"
	FeatureTaxCalculation = "taxCalculation"

	// Professional tier features (everything in Basic, plus:)
	FeatureMultiWarehouse    = "multiWarehouse"
	FeatureAdvancedReports   = "advancedReports"
	FeatureEInvoicing        = "eInvoicing"
	FeatureDemandForecasting = "demandForecasting"
	FeatureAPIAccess         = "apiAccess"
	FeatureMultiCurrency     = "multiCurrency"

	// Enterprise tier features (everything in Professional, plus:)
	FeatureAIChatAssistant    = "aiChatAssistant"
	FeatureCustomIntegrations = "customIntegrations"
	FeatureAuditTrail         = "auditTrail"
	FeaturePrioritySupport    = "prioritySupport"
	FeatureWhiteLabel         = "whiteLabel"
	FeatureSSO                = "sso"
)

var basicFeatures = []string{
	FeatureInvoicing,
	FeatureInventory,
	FeatureCustomers,
	FeatureBasicReports,
	FeatureTaxCalculation,
}

var professionalFeatures = appendFeatures(basicFeatures,
	FeatureMultiWarehouse,
	FeatureAdvancedReports,
	FeatureEInvoicing,
	FeatureDemandForecasting,
	FeatureAPIAccess,
	FeatureMultiCurrency,
)

var enterpriseFeatures = appendFeatures(professionalFeatures,
	FeatureAIChatAssistant,
	FeatureCustomIntegrations,
	FeatureAuditTrail,
	FeaturePrioritySupport,
	FeatureWhiteLabel,
	FeatureSSO,
)

// appendFeatures returns a new slice; base is not mutated.
func appendFeatures(base []string, extra ...string) []string {
	result := make([]string, len(base), len(base)+len(extra))
	copy(result, base)
	return append(result, extra...)
}

// TierFeatures maps each tier to the features it includes by default.
var TierFeatures = map[Tier][]string{
	TierBasic:        basicFeatures,
	TierProfessional: professionalFeatures,
	TierEnterprise:   enterpriseFeatures,
}

// featureMinTier is built from TierFeatures: the lowest tier listing a feature.
var featureMinTier = func() map[string]Tier {
	out := make(map[string]Tier, len(enterpriseFeatures))
	for i := len(Tiers) - 1; i >= 0; i-- {
		for _, f := range TierFeatures[Tiers[i]] {
			out[f] = Tiers[i]
		}
	}
	return out
}()

// AllFeatures returns every known feature name, basic tier first.
func AllFeatures() []string {
	out := make([]string, len(enterpriseFeatures))
	copy(out, enterpriseFeatures)
	return out
}

// KnownFeature reports whether name is in the feature table.
func KnownFeature(name string) bool {
	_, ok := featureMinTier[name]
	return ok
}

// RequiredTier returns the lowest tier that includes feature by default.
// Unknown features require the highest tier.
func RequiredTier(feature string) Tier {
	if t, ok := featureMinTier[feature]; ok {
		return t
	}
	return TierEnterprise
}

// TierIncludes reports whether tier includes feature by default.
func TierIncludes(tier Tier, feature string) bool {
	return tier.AtLeast(RequiredTier(feature))
}

// DefaultFeatures returns the full feature map for tier: every known feature
// is present, enabled if the tier includes it.
func DefaultFeatures(tier Tier) map[string]bool {
	out := make(map[string]bool, len(featureMinTier))
	for f := range featureMinTier {
		out[f] = TierIncludes(tier, f)
	}
	return out
}

// MergeFeatures overlays overrides on tier defaults. Overrides win in both
// directions and may name features outside the table.
func MergeFeatures(tier Tier, overrides map[string]bool) map[string]bool {
	out := DefaultFeatures(tier)
	maps.Copy(out, overrides)
	return out
}
