package internaldefs

import (
	goGate "github.com/MrEthical07/goGate"
)

// CounterDef maps a counter ID to its exported name.
type CounterDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

// HistogramDef maps a latency histogram ID to its exported name.
type HistogramDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in export order.
var CounterDefs = []CounterDef{
	{ID: goGate.MetricEvaluate, Name: "gogate_evaluate_total", Help: "Route gate evaluations."},
	{ID: goGate.MetricAllow, Name: "gogate_allow_total", Help: "Evaluations that allowed the navigation."},
	{ID: goGate.MetricRedirectLogin, Name: "gogate_redirect_login_total", Help: "Redirects to the login page."},
	{ID: goGate.MetricRedirectHome, Name: "gogate_redirect_home_total", Help: "Redirects to a role home page."},
	{ID: goGate.MetricRedirectUnauthorized, Name: "gogate_redirect_unauthorized_total", Help: "Redirects to the unauthorized page."},
	{ID: goGate.MetricSessionHealed, Name: "gogate_session_healed_total", Help: "Corrupt persisted records repaired."},
	{ID: goGate.MetricTokenExpired, Name: "gogate_token_expired_total", Help: "Sessions ended for an expired or unreadable token."},
	{ID: goGate.MetricStorageError, Name: "gogate_storage_error_total", Help: "Session storage failures."},
	{ID: goGate.MetricExitMarkerConsumed, Name: "gogate_exit_marker_consumed_total", Help: "Impersonation exit markers consumed by the gate."},
	{ID: goGate.MetricExitRecovered, Name: "gogate_exit_recovered_total", Help: "Interrupted impersonation exits finished by the gate."},
	{ID: goGate.MetricImpersonationEnter, Name: "gogate_impersonation_enter_total", Help: "Impersonations started."},
	{ID: goGate.MetricImpersonationEnterRejected, Name: "gogate_impersonation_enter_rejected_total", Help: "Impersonation attempts rejected."},
	{ID: goGate.MetricImpersonationExit, Name: "gogate_impersonation_exit_total", Help: "Impersonations ended."},
	{ID: goGate.MetricImpersonationExitNoop, Name: "gogate_impersonation_exit_noop_total", Help: "Exit calls with nothing to end."},
	{ID: goGate.MetricLogin, Name: "gogate_login_total", Help: "Sessions stored by login."},
	{ID: goGate.MetricLogout, Name: "gogate_logout_total", Help: "Logout operations."},
	{ID: goGate.MetricUnauthorizedResponse, Name: "gogate_unauthorized_response_total", Help: "Backend 401 responses."},
	{ID: goGate.MetricNavigationCancelled, Name: "gogate_navigation_cancelled_total", Help: "Navigations superseded before settling."},
	{ID: goGate.MetricRequest, Name: "gogate_request_total", Help: "Backend requests sent."},
	{ID: goGate.MetricRequestFailure, Name: "gogate_request_failure_total", Help: "Backend requests that failed."},
	{ID: goGate.MetricCacheHit, Name: "gogate_cache_hit_total", Help: "GET responses served from cache."},
	{ID: goGate.MetricCacheMiss, Name: "gogate_cache_miss_total", Help: "GET requests not found in cache."},
	{ID: goGate.MetricRequestDeduplicated, Name: "gogate_request_deduplicated_total", Help: "Requests joined to an identical in-flight request."},
	{ID: goGate.MetricRequestAbandoned, Name: "gogate_request_abandoned_total", Help: "In-flight requests abandoned by every caller."},
}

// HistogramDefs lists the latency histograms.
var HistogramDefs = []HistogramDef{
	{ID: goGate.MetricEvaluateLatency, Name: "gogate_evaluate_latency_seconds", Help: "Route gate evaluation latency."},
	{ID: goGate.MetricRequestLatency, Name: "gogate_request_latency_seconds", Help: "Backend request latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the core buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds in a form usable inside a metric name.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling short input.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
