package marketdata

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsPrefix = "holdings_risk_"
	// latencyWindow is how many recent calls the rolling average covers.
	latencyWindow = 50
)

var providerLatencyBuckets = []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// CallStats is the exported view of one provider operation's history.
type CallStats struct {
	LastCallAt    time.Time `json:"lastCallAt"`
	Provider      string    `json:"provider"`
	Operation     string    `json:"operation"`
	LastError     string    `json:"lastError,omitempty"`
	Success       int64     `json:"success"`
	Errors        int64     `json:"errors"`
	LastLatencyMs float64   `json:"lastLatencyMs"`
	AvgLatencyMs  float64   `json:"avgLatencyMs"`
}

type callKey struct {
	provider  string
	operation string
}

type callRecord struct {
	stats     CallStats
	latencies [latencyWindow]float64
	next      int
	filled    int
}

func (r *callRecord) addLatency(ms float64) {
	r.latencies[r.next] = ms
	r.next = (r.next + 1) % latencyWindow
	if r.filled < latencyWindow {
		r.filled++
	}

	sum := 0.0
	for i := 0; i < r.filled; i++ {
		sum += r.latencies[i]
	}
	r.stats.AvgLatencyMs = sum / float64(r.filled)
	r.stats.LastLatencyMs = ms
}

// ProviderMetrics counts calls and latency per (provider, operation).
// Recording never affects the caller's control flow.
type ProviderMetrics struct {
	mu      sync.Mutex
	records map[callKey]*callRecord

	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewProviderMetrics creates the metrics holder and registers its collectors
// with registerer. A nil registerer keeps the counters in memory only.
func NewProviderMetrics(registerer prometheus.Registerer) (*ProviderMetrics, error) {
	m := &ProviderMetrics{
		records: make(map[callKey]*callRecord),
	}

	m.calls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricsPrefix + "provider_calls_total",
		Help: "Total number of market data provider calls by outcome.",
	}, []string{"provider", "operation", "status"})

	m.latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    metricsPrefix + "provider_call_duration_milliseconds",
		Help:    "Histogram of market data provider call latency in milliseconds.",
		Buckets: providerLatencyBuckets,
	}, []string{"provider", "operation"})

	if registerer != nil {
		for _, c := range []prometheus.Collector{m.calls, m.latency} {
			if err := registerer.Register(c); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

// Record stores the outcome of one provider call.
func (m *ProviderMetrics) Record(provider, operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}

	ms := float64(elapsed) / float64(time.Millisecond)
	status := "success"
	if err != nil {
		status = "error"
	}
	m.calls.WithLabelValues(provider, operation, status).Inc()
	m.latency.WithLabelValues(provider, operation).Observe(ms)

	m.mu.Lock()
	defer m.mu.Unlock()

	key := callKey{provider: provider, operation: operation}
	rec, ok := m.records[key]
	if !ok {
		rec = &callRecord{stats: CallStats{Provider: provider, Operation: operation}}
		m.records[key] = rec
	}

	if err != nil {
		rec.stats.Errors++
		rec.stats.LastError = err.Error()
	} else {
		rec.stats.Success++
	}
	rec.stats.LastCallAt = time.Now().UTC()
	rec.addLatency(ms)
}

// Snapshot returns a copy of all stats sorted by provider then operation.
func (m *ProviderMetrics) Snapshot() []CallStats {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	out := make([]CallStats, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.stats)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Operation < out[j].Operation
	})
	return out
}

// track times fn and records its outcome.
func track[T any](m *ProviderMetrics, provider, operation string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	m.Record(provider, operation, time.Since(start), err)
	return v, err
}
