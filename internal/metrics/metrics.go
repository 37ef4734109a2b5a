// Package metrics exposes Prometheus collectors for settings store traffic.
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultConflict = "conflict"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// Metrics holds the settings store collectors.
type Metrics struct {
	reads           *prometheus.CounterVec
	replaces        *prometheus.CounterVec
	replaceDuration *prometheus.HistogramVec
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the metrics registered with the global registry. Collectors
// are created once so repeated store construction does not panic.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew registers the collectors with reg. Already registered collectors of
// the same shape are reused; any other registration error panics.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitmind",
			Subsystem: "settings",
			Name:      "reads_total",
			Help:      "Settings store reads by backend and result.",
		}, []string{"backend", "result"}),
		replaces: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitmind",
			Subsystem: "settings",
			Name:      "replaces_total",
			Help:      "Settings store replacements by backend and result.",
		}, []string{"backend", "result"}),
		replaceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "splitmind",
			Subsystem: "settings",
			Name:      "replace_duration_seconds",
			Help:      "Latency of settings store replacements.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
	}

	m.reads = registerCounter(reg, m.reads)
	m.replaces = registerCounter(reg, m.replaces)
	if err := reg.Register(m.replaceDuration); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			panic(err)
		}
		m.replaceDuration = already.ExistingCollector.(*prometheus.HistogramVec)
	}
	return m
}

func registerCounter(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			panic(err)
		}
		return already.ExistingCollector.(*prometheus.CounterVec)
	}
	return c
}

// ObserveRead counts a store read.
func (m *Metrics) ObserveRead(backend, result string) {
	if m == nil {
		return
	}
	m.reads.WithLabelValues(backend, result).Inc()
}

// ObserveReplace counts a store replacement and records its latency.
func (m *Metrics) ObserveReplace(backend, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.replaces.WithLabelValues(backend, result).Inc()
	m.replaceDuration.WithLabelValues(backend).Observe(d.Seconds())
}
