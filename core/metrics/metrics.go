package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storesync"

// Metrics holds the engine collectors.
type Metrics struct {
	records  *prometheus.CounterVec
	pages    *prometheus.CounterVec
	failures *prometheus.CounterVec
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
}

// New creates the collectors and registers them on reg when reg is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "records_total",
			Help:      "Number of records replicated, per source and target store",
		}, []string{
			"source",
			"target",
		}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "pages_total",
			Help:      "Number of pages read, per source store",
		}, []string{
			"source",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "failures_total",
			Help:      "Number of failed fan-out operations, per store and operation",
		}, []string{
			"store",
			"op",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Number of synchronize runs, per result",
		}, []string{
			"result",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Duration of synchronize runs",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}

	if reg != nil {
		reg.MustRegister(m.records, m.pages, m.failures, m.runs, m.duration)
	}
	return m
}

// Replicated counts n records copied from source to target.
func (m *Metrics) Replicated(source, target string, n int) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(source, target).Add(float64(n))
}

// Page counts one page read from source.
func (m *Metrics) Page(source string) {
	if m == nil {
		return
	}
	m.pages.WithLabelValues(source).Inc()
}

// FanoutFailed counts a failed fan-out operation on a store.
func (m *Metrics) FanoutFailed(store, op string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(store, op).Inc()
}

// SyncDone records the outcome and duration of a synchronize run.
func (m *Metrics) SyncDone(start time.Time, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.runs.WithLabelValues(result).Inc()
	m.duration.Observe(time.Since(start).Seconds())
}
