package authgate

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one of the engine's internal counters.
type MetricID uint16

const (
	// MetricSignInSuccess counts fully authenticated sign-ins, including
	// second-factor completions.
	MetricSignInSuccess MetricID = iota
	// MetricSignInFailure counts rejected credential checks.
	MetricSignInFailure
	// MetricSignInThrottled counts sign-ins refused by the rate limiter.
	MetricSignInThrottled
	// MetricSignUpSuccess counts created accounts.
	MetricSignUpSuccess
	// MetricSignUpDuplicate counts registrations rejected for a taken
	// username or email.
	MetricSignUpDuplicate
	// MetricPreAuthIssued counts sign-ins that stopped at the
	// second-factor gate and issued a pre-auth token.
	MetricPreAuthIssued
	// MetricTwoFactorEnrolled counts generated enrollment secrets.
	MetricTwoFactorEnrolled
	// MetricTwoFactorConfirmed counts enrollments activated by a first
	// valid code.
	MetricTwoFactorConfirmed
	// MetricTwoFactorDisabled counts second factors torn down.
	MetricTwoFactorDisabled
	// MetricCodeSuccess counts accepted one-time codes.
	MetricCodeSuccess
	// MetricCodeFailure counts rejected one-time codes.
	MetricCodeFailure
	// MetricCodeThrottled counts code checks refused by the rate limiter.
	MetricCodeThrottled
	// MetricResetRequested counts password reset requests, whether or not
	// the email resolved to an account.
	MetricResetRequested
	// MetricResetRedeemed counts successful reset redemptions.
	MetricResetRedeemed
	// MetricResetRejected counts reset redemptions rejected for an
	// unknown, expired, or already used token.
	MetricResetRejected
	// MetricPasswordChanged counts in-session password changes.
	MetricPasswordChanged
	// MetricValidateSuccess counts session tokens accepted by validation.
	MetricValidateSuccess
	// MetricValidateFailure counts session tokens rejected by validation.
	MetricValidateFailure
	// MetricValidateLatency is the histogram slot for validation latency.
	MetricValidateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the engine's counters. Counters are cache-line padded so
// hot paths on different cores do not contend.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics builds a Metrics set from configuration. A disabled set is
// still safe to call; every operation becomes a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a validation latency sample. Only MetricValidateLatency
// carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricValidateLatency {
		return
	}
	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters and histograms.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
