// Package guard turns a validated entitlement into allow or deny decisions.
//
// Guards never verify tokens. They take a *license.ValidatedEntitlement that
// was already verified and cached, and return nil or a typed denial:
// [TierInsufficientError], [FeatureNotAvailableError] or [LimitExceededError].
// Every denial matches [ErrAccessDenied] with errors.Is.
//
// A route declares what it needs as a [Requirement]:
//
//	req := guard.Requirement{Tier: license.TierProfessional, Features: []string{license.FeatureEInvoicing}}
//	if err := req.Evaluate(ve); err != nil {
//		var missing *guard.FeatureNotAvailableError
//		if errors.As(err, &missing) {
//			s := guard.UpgradeSuggestion(missing.CurrentTier, missing.Missing[0])
//			...
//		}
//	}
package guard
