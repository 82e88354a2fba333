package internaldefs

import (
	goEntitle "github.com/MrEthical07/goEntitle"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goEntitle.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goEntitle.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goEntitle.MetricSessionIssued, Name: "goentitle_session_issued_total", Help: "Sessions issued."},
	{ID: goEntitle.MetricAuthenticateSuccess, Name: "goentitle_authenticate_success_total", Help: "Access tokens accepted."},
	{ID: goEntitle.MetricAuthenticateFailure, Name: "goentitle_authenticate_failure_total", Help: "Access tokens rejected."},
	{ID: goEntitle.MetricRefreshSuccess, Name: "goentitle_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: goEntitle.MetricRefreshFailure, Name: "goentitle_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: goEntitle.MetricRefreshReuseDetected, Name: "goentitle_refresh_reuse_detected_total", Help: "Replayed refresh tokens; each revokes its family."},
	{ID: goEntitle.MetricRefreshRateLimited, Name: "goentitle_refresh_rate_limited_total", Help: "Refresh attempts rejected by the throttle."},
	{ID: goEntitle.MetricLogout, Name: "goentitle_logout_total", Help: "Logout operations."},
	{ID: goEntitle.MetricEntitlementIssued, Name: "goentitle_entitlement_issued_total", Help: "Entitlements issued, extended or upgraded."},
	{ID: goEntitle.MetricEntitlementRevoked, Name: "goentitle_entitlement_revoked_total", Help: "Entitlements revoked."},
	{ID: goEntitle.MetricEntitlementCacheHit, Name: "goentitle_entitlement_cache_hit_total", Help: "Entitlement lookups served from the tenant cache."},
	{ID: goEntitle.MetricEntitlementCacheMiss, Name: "goentitle_entitlement_cache_miss_total", Help: "Entitlement lookups that loaded from the store."},
	{ID: goEntitle.MetricEntitlementValidationFailure, Name: "goentitle_entitlement_validation_failure_total", Help: "Stored entitlements that failed validation."},
	{ID: goEntitle.MetricGuardDenied, Name: "goentitle_guard_denied_total", Help: "Requests denied by a tier, feature or limit guard."},
}

var HistogramDefs = []HistogramDef{
	{ID: goEntitle.MetricAuthenticateLatency, Name: "goentitle_authenticate_latency_seconds", Help: "Access token verification latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "goentitle_audit_dropped_total"

// HistogramBounds are the upper bounds in seconds of every bucket but the
// last, which is unbounded.
var HistogramBounds = []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.01}

// HistogramBoundLabels renders every bucket bound, +Inf included, as an
// "le" label value.
var HistogramBoundLabels = []string{
	"0.00005",
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.0025",
	"0.01",
	"+Inf",
}

// BucketCount includes the +Inf bucket.
const BucketCount = 8

// NormalizeBuckets copies raw into a fixed array, ignoring extra entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
