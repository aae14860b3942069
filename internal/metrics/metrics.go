package metrics

import (
	"sync/atomic"
	"time"
)

// ID identifies one counter or histogram.
type ID uint16

const (
	LoginSuccess ID = iota
	LoginFailure
	SecondFactorRequired
	SecondFactorSkipped
	CodeSent
	CodeSendFailure
	CodeSendRateLimited
	CodeVerified
	CodeRejected
	NoSession
	ProfileBackfill
	ProfileBackfillFailure
	ProfileCreated
	ProfileCreateFailure
	CallbackVerified
	CallbackPending
	CallbackAwaiting
	CallbackUnconfirmed
	CallbackError
	SignUpSuccess
	SignUpFailure
	SignOut
	DashboardLoaded
	ChannelLatency
	idCount
)

// Count is the number of defined IDs.
const Count = int(idCount)

const (
	BucketCount   = 8
	cacheLineSize = 64
)

type histogram struct {
	buckets  [BucketCount]uint64
	sumNanos uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config toggles collection.
type Config struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Metrics is a fixed set of lock-free counters and latency histograms.
// A nil or disabled *Metrics ignores every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [idCount]paddedCounter
	histograms    [idCount]histogram
}

// Snapshot is a point-in-time copy of all values. Histogram buckets are
// non-cumulative.
type Snapshot struct {
	Counters   map[ID]uint64
	Histograms map[ID][]uint64
	Sums       map[ID]time.Duration
}

func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Inc(id ID) {
	if m == nil || !m.enabled || id >= idCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a latency sample. Only histogram IDs accept samples.
func (m *Metrics) Observe(id ID, d time.Duration) {
	if m == nil || !m.enableLatency || !IsHistogram(id) {
		return
	}
	if d < 0 {
		d = 0
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
	atomic.AddUint64(&m.histograms[id].sumNanos, uint64(d))
}

func (m *Metrics) Value(id ID) uint64 {
	if m == nil || id >= idCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		Counters:   map[ID]uint64{},
		Histograms: map[ID][]uint64{},
		Sums:       map[ID]time.Duration{},
	}
	if m == nil || !m.enabled {
		return s
	}

	for id := ID(0); id < idCount; id++ {
		if IsHistogram(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if m.enableLatency {
		for _, id := range histogramIDs {
			buckets := make([]uint64, BucketCount)
			for i := range buckets {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
			s.Sums[id] = time.Duration(atomic.LoadUint64(&m.histograms[id].sumNanos))
		}
	}
	return s
}

var histogramIDs = []ID{ChannelLatency}

// IsHistogram reports whether id is a latency histogram rather than a counter.
func IsHistogram(id ID) bool {
	return id == ChannelLatency
}

// BucketBounds are the inclusive upper bounds of the first BucketCount-1
// buckets; the last bucket is unbounded.
var BucketBounds = [BucketCount - 1]time.Duration{
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	2500 * time.Millisecond,
}

func bucketIndex(d time.Duration) int {
	for i, b := range BucketBounds {
		if d <= b {
			return i
		}
	}
	return BucketCount - 1
}
