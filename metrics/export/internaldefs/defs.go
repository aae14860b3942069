package internaldefs

import (
	authflow "github.com/MrEthical07/goAuthClient"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for export.
type HistogramDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: authflow.MetricLoginSuccess, Name: "authflow_login_success_total", Help: "Login attempts that reached the authenticated state."},
	{ID: authflow.MetricLoginFailure, Name: "authflow_login_failure_total", Help: "Credential submissions that failed."},
	{ID: authflow.MetricSecondFactorRequired, Name: "authflow_second_factor_required_total", Help: "Logins that required a phone code."},
	{ID: authflow.MetricSecondFactorSkipped, Name: "authflow_second_factor_skipped_total", Help: "Logins completed without a second factor."},
	{ID: authflow.MetricCodeSent, Name: "authflow_code_sent_total", Help: "Verification codes sent."},
	{ID: authflow.MetricCodeSendFailure, Name: "authflow_code_send_failure_total", Help: "Failed verification code sends."},
	{ID: authflow.MetricCodeSendRateLimited, Name: "authflow_code_send_rate_limited_total", Help: "Code sends denied by the per-phone limit."},
	{ID: authflow.MetricCodeVerified, Name: "authflow_code_verified_total", Help: "Verification codes accepted."},
	{ID: authflow.MetricCodeRejected, Name: "authflow_code_rejected_total", Help: "Verification codes rejected."},
	{ID: authflow.MetricNoSession, Name: "authflow_no_session_total", Help: "Login attempts abandoned because the session was gone."},
	{ID: authflow.MetricProfileBackfill, Name: "authflow_profile_backfill_total", Help: "Profile phone numbers copied from sign-up metadata."},
	{ID: authflow.MetricProfileBackfillFailure, Name: "authflow_profile_backfill_failure_total", Help: "Tolerated profile backfill failures."},
	{ID: authflow.MetricProfileCreated, Name: "authflow_profile_created_total", Help: "Profile rows created."},
	{ID: authflow.MetricProfileCreateFailure, Name: "authflow_profile_create_failure_total", Help: "Tolerated profile creation failures."},
	{ID: authflow.MetricCallbackVerified, Name: "authflow_callback_verified_total", Help: "Callbacks that found a confirmed email."},
	{ID: authflow.MetricCallbackPending, Name: "authflow_callback_pending_total", Help: "Callbacks that found an unconfirmed email."},
	{ID: authflow.MetricCallbackAwaiting, Name: "authflow_callback_awaiting_total", Help: "Callbacks without tokens."},
	{ID: authflow.MetricCallbackUnconfirmed, Name: "authflow_callback_unconfirmed_total", Help: "Callbacks whose tokens produced no session."},
	{ID: authflow.MetricCallbackError, Name: "authflow_callback_error_total", Help: "Callbacks that ended in error."},
	{ID: authflow.MetricSignUpSuccess, Name: "authflow_signup_success_total", Help: "Successful registrations."},
	{ID: authflow.MetricSignUpFailure, Name: "authflow_signup_failure_total", Help: "Failed registrations."},
	{ID: authflow.MetricSignOut, Name: "authflow_signout_total", Help: "Sign-out operations."},
	{ID: authflow.MetricDashboardLoaded, Name: "authflow_dashboard_loaded_total", Help: "Dashboard loads."},
}

// HistogramDefs lists every exported latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: authflow.MetricChannelLatency, Name: "authflow_channel_latency_seconds", Help: "Verification code service call latency."},
}

// HistogramBounds are the "le" labels matching the engine's bucket layout.
var HistogramBounds = [authflow.MetricBucketCount]string{
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds in a form usable in instrument names.
var HistogramBoundSuffix = [authflow.MetricBucketCount]string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [authflow.MetricBucketCount]uint64 {
	var out [authflow.MetricBucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [authflow.MetricBucketCount]uint64) [authflow.MetricBucketCount]uint64 {
	var out [authflow.MetricBucketCount]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
