package guard

import (
	"fmt"
	"sort"

	"github.com/MrEthical07/goEntitle/license"
)

// Suggestion is an upgrade prompt for a missing feature.
type Suggestion struct {
	Feature       string       `json:"feature"`
	SuggestedTier license.Tier `json:"suggestedTier"`
	Message       string       `json:"message"`
	Priority      int          `json:"-"`
}

// Reason is an actionable upgrade prompt tied to a feature.
type Reason struct {
	Feature  string
	Message  string
	Priority int // lower sorts first
}

// UpgradeReasons holds the user-facing prompt for each gated feature.
// Features without an entry get a generic message.
var UpgradeReasons = []Reason{
	{
		Feature:  license.FeatureDemandForecasting,
		Message:  "Upgrade to Professional for demand forecasting, so reorder points follow real sales instead of guesses.",
		Priority: 1,
	},
	{
		Feature:  license.FeatureEInvoicing,
		Message:  "Upgrade to Professional to send e-invoices that clear the tax portal without re-keying.",
		Priority: 2,
	},
	{
		Feature:  license.FeatureMultiWarehouse,
		Message:  "Upgrade to Professional to track stock across every warehouse and transfer between them.",
		Priority: 3,
	},
	{
		Feature:  license.FeatureAdvancedReports,
		Message:  "Upgrade to Professional for margin, ageing and trend reports with scheduled exports.",
		Priority: 4,
	},
	{
		Feature:  license.FeatureMultiCurrency,
		Message:  "Upgrade to Professional to invoice and report in multiple currencies.",
		Priority: 5,
	},
	{
		Feature:  license.FeatureAPIAccess,
		Message:  "Upgrade to Professional for API access to connect your storefront and accounting tools.",
		Priority: 6,
	},
	{
		Feature:  license.FeatureAIChatAssistant,
		Message:  "Upgrade to Enterprise for the AI assistant, which answers questions about your business data.",
		Priority: 7,
	},
	{
		Feature:  license.FeatureAuditTrail,
		Message:  "Upgrade to Enterprise for a complete audit trail of every change, for compliance and incident review.",
		Priority: 8,
	},
	{
		Feature:  license.FeatureSSO,
		Message:  "Upgrade to Enterprise for single sign-on with your identity provider.",
		Priority: 9,
	},
	{
		Feature:  license.FeatureCustomIntegrations,
		Message:  "Upgrade to Enterprise for custom integrations built around your workflows.",
		Priority: 10,
	},
	{
		Feature:  license.FeatureWhiteLabel,
		Message:  "Upgrade to Enterprise to put your own brand on documents and the customer portal.",
		Priority: 11,
	},
	{
		Feature:  license.FeaturePrioritySupport,
		Message:  "Upgrade to Enterprise for priority support with a guaranteed response time.",
		Priority: 12,
	},
}

var reasonByFeature = func() map[string]Reason {
	out := make(map[string]Reason, len(UpgradeReasons))
	for _, r := range UpgradeReasons {
		out[r.Feature] = r
	}
	return out
}()

// UpgradeSuggestion returns the lowest tier that unlocks feature. It returns
// nil when current should already include it, which means the feature was
// switched off for this tenant by an override rather than by tier.
func UpgradeSuggestion(current license.Tier, feature string) *Suggestion {
	required := license.RequiredTier(feature)
	if current.AtLeast(required) {
		return nil
	}
	s := &Suggestion{Feature: feature, SuggestedTier: required, Priority: len(UpgradeReasons) + 1}
	if r, ok := reasonByFeature[feature]; ok {
		s.Message = r.Message
		s.Priority = r.Priority
	} else {
		s.Message = fmt.Sprintf("Upgrade to %s to unlock %s.", required.DisplayName(), feature)
	}
	return s
}

// Suggestions returns an upgrade prompt for every feature ve lacks that a
// higher tier would unlock, most important first.
func Suggestions(ve *license.ValidatedEntitlement) []Suggestion {
	var current license.Tier
	if ve != nil {
		current = ve.Tier
	}
	out := make([]Suggestion, 0, len(license.AllFeatures()))
	for _, f := range license.AllFeatures() {
		if ve != nil && ve.HasFeature(f) {
			continue
		}
		if s := UpgradeSuggestion(current, f); s != nil {
			out = append(out, *s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority == out[j].Priority {
			return out[i].Feature < out[j].Feature
		}
		return out[i].Priority < out[j].Priority
	})
	return out
}
