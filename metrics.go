package goGate

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one counter or histogram in [Metrics].
type MetricID uint16

const (
	MetricEvaluate MetricID = iota
	MetricAllow
	MetricRedirectLogin
	MetricRedirectHome
	MetricRedirectUnauthorized
	MetricSessionHealed
	MetricTokenExpired
	MetricStorageError
	MetricExitMarkerConsumed
	MetricExitRecovered
	MetricImpersonationEnter
	MetricImpersonationEnterRejected
	MetricImpersonationExit
	MetricImpersonationExitNoop
	MetricLogin
	MetricLogout
	MetricUnauthorizedResponse
	MetricNavigationCancelled
	MetricRequest
	MetricRequestFailure
	MetricCacheHit
	MetricCacheMiss
	MetricRequestDeduplicated
	MetricRequestAbandoned
	// MetricEvaluateLatency is the gate evaluation latency histogram.
	MetricEvaluateLatency
	// MetricRequestLatency is the network request latency histogram.
	MetricRequestLatency
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

// Metrics holds lock-free counters and fixed-bucket latency histograms.
// A nil or disabled Metrics ignores every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only histogram IDs are accepted.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || !isHistogram(id) {
		return
	}
	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 2),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if isHistogram(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range []MetricID{MetricEvaluateLatency, MetricRequestLatency} {
			buckets := make([]uint64, histBucketCount)
			for i := 0; i < histBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}

	return s
}

func isHistogram(id MetricID) bool {
	return id == MetricEvaluateLatency || id == MetricRequestLatency
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

// clientObserver feeds request-client telemetry into Metrics.
type clientObserver struct {
	metrics *Metrics
}

func (o clientObserver) ObserveRequest(_ string, _ int, latency time.Duration, err error) {
	o.metrics.Inc(MetricRequest)
	if err != nil {
		o.metrics.Inc(MetricRequestFailure)
	}
	o.metrics.Observe(MetricRequestLatency, latency)
}

func (o clientObserver) ObserveCache(hit bool) {
	if hit {
		o.metrics.Inc(MetricCacheHit)
		return
	}
	o.metrics.Inc(MetricCacheMiss)
}

func (o clientObserver) ObserveDeduplicated() { o.metrics.Inc(MetricRequestDeduplicated) }

func (o clientObserver) ObserveAbandoned() { o.metrics.Inc(MetricRequestAbandoned) }
