// Package metrics exposes analysis results as Prometheus collectors on a
// dedicated registry.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obsidianstack/upperlimit/internal/engine"
)

// Metrics holds all Prometheus collectors for upperlimit.
type Metrics struct {
	registry *prometheus.Registry

	UpperLimit      *prometheus.GaugeVec
	SensitiveVolume *prometheus.GaugeVec
	VolumeError     *prometheus.GaugeVec
	AnalysisUp      *prometheus.GaugeVec
	RunsTotal       *prometheus.CounterVec
	CacheHitsTotal  prometheus.Counter
	CacheMissTotal  prometheus.Counter
	ComputeDuration prometheus.Histogram
}

// New creates the collectors, every name prefixed with prefix, and
// registers them on a fresh registry.
func New(prefix string) *Metrics {
	name := func(n string) string {
		if prefix == "" {
			return n
		}
		return prefix + "_" + n
	}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		UpperLimit: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name("upper_limit"),
				Help: "Credible upper limit on the rate by analysis and confidence level.",
			},
			[]string{"analysis", "confidence"},
		),
		SensitiveVolume: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name("sensitive_volume"),
				Help: "Sensitive volume-time of each search, livetime applied.",
			},
			[]string{"analysis", "search"},
		),
		VolumeError: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name("sensitive_volume_error"),
				Help: "One-sigma uncertainty of the sensitive volume-time.",
			},
			[]string{"analysis", "search"},
		),
		AnalysisUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name("analysis_up"),
				Help: "1 if the last evaluation of the analysis succeeded, 0 otherwise.",
			},
			[]string{"analysis"},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name("runs_total"),
				Help: "Analysis evaluations by result (ok, error).",
			},
			[]string{"result"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: name("cache_hits_total"),
				Help: "Analyses served from the result cache.",
			},
		),
		CacheMissTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: name("cache_misses_total"),
				Help: "Analyses that had to be computed.",
			},
		),
		ComputeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    name("compute_duration_seconds"),
				Help:    "Time to evaluate one analysis.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
	}
	m.registry.MustRegister(
		m.UpperLimit,
		m.SensitiveVolume,
		m.VolumeError,
		m.AnalysisUp,
		m.RunsTotal,
		m.CacheHitsTotal,
		m.CacheMissTotal,
		m.ComputeDuration,
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun implements engine.Recorder.
func (m *Metrics) ObserveRun(r *engine.Result) {
	outcome := "ok"
	if !r.OK() {
		outcome = "error"
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.ComputeDuration.Observe(r.Duration.Seconds())
}

// ObserveCache implements engine.Recorder.
func (m *Metrics) ObserveCache(hit bool) {
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissTotal.Inc()
}

// Publish replaces the result gauges with results. Series of analyses that
// are no longer present disappear.
func (m *Metrics) Publish(results []*engine.Result) {
	m.UpperLimit.Reset()
	m.SensitiveVolume.Reset()
	m.VolumeError.Reset()
	m.AnalysisUp.Reset()

	for _, r := range results {
		if !r.OK() {
			m.AnalysisUp.WithLabelValues(r.Analysis).Set(0)
			continue
		}
		m.AnalysisUp.WithLabelValues(r.Analysis).Set(1)
		for _, l := range r.Limits {
			m.UpperLimit.WithLabelValues(r.Analysis, ConfidenceLabel(l.Confidence)).Set(l.Upper)
		}
		for _, s := range r.Searches {
			m.SensitiveVolume.WithLabelValues(r.Analysis, s.Name).Set(s.Sensitivity.Volume)
			m.VolumeError.WithLabelValues(r.Analysis, s.Name).Set(s.Sensitivity.VolumeError)
		}
	}
}

// ConfidenceLabel formats a confidence level as a label value, e.g. "0.9".
func ConfidenceLabel(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}
