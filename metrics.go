package goAuthClient

import "github.com/MrEthical07/goAuthClient/internal/metrics"

// MetricID identifies one counter or latency histogram.
type MetricID = metrics.ID

// MetricsSnapshot is a point-in-time copy of every metric.
type MetricsSnapshot = metrics.Snapshot

const (
	MetricLoginSuccess           = metrics.LoginSuccess
	MetricLoginFailure           = metrics.LoginFailure
	MetricSecondFactorRequired   = metrics.SecondFactorRequired
	MetricSecondFactorSkipped    = metrics.SecondFactorSkipped
	MetricCodeSent               = metrics.CodeSent
	MetricCodeSendFailure        = metrics.CodeSendFailure
	MetricCodeSendRateLimited    = metrics.CodeSendRateLimited
	MetricCodeVerified           = metrics.CodeVerified
	MetricCodeRejected           = metrics.CodeRejected
	MetricNoSession              = metrics.NoSession
	MetricProfileBackfill        = metrics.ProfileBackfill
	MetricProfileBackfillFailure = metrics.ProfileBackfillFailure
	MetricProfileCreated         = metrics.ProfileCreated
	MetricProfileCreateFailure   = metrics.ProfileCreateFailure
	MetricCallbackVerified       = metrics.CallbackVerified
	MetricCallbackPending        = metrics.CallbackPending
	MetricCallbackAwaiting       = metrics.CallbackAwaiting
	MetricCallbackUnconfirmed    = metrics.CallbackUnconfirmed
	MetricCallbackError          = metrics.CallbackError
	MetricSignUpSuccess          = metrics.SignUpSuccess
	MetricSignUpFailure          = metrics.SignUpFailure
	MetricSignOut                = metrics.SignOut
	MetricDashboardLoaded        = metrics.DashboardLoaded
	MetricChannelLatency         = metrics.ChannelLatency
)

// MetricCount is the number of defined metric ids.
const MetricCount = metrics.Count

// MetricBucketCount is the number of buckets of every latency histogram.
const MetricBucketCount = metrics.BucketCount

// MetricIsHistogram reports whether id is a latency histogram.
func MetricIsHistogram(id MetricID) bool {
	return metrics.IsHistogram(id)
}
