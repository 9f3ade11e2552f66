package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the bootstrap runtime. A nil
// *Metrics is valid and records nothing, so wiring is optional everywhere.
type Metrics struct {
	// Provider probe metrics
	ProbeAttempts *prometheus.CounterVec
	ProbeDuration *prometheus.HistogramVec

	// Module resolution metrics
	Resolutions *prometheus.CounterVec

	// Manifest metrics
	ManifestFetches *prometheus.CounterVec

	// Script execution metrics
	ScriptLoads *prometheus.CounterVec

	// Bootstrap lifecycle
	Bootstraps *prometheus.CounterVec

	startTime time.Time
}

// NewMetrics creates a metrics collector registered on the given registerer.
// Pass prometheus.DefaultRegisterer for the process-wide registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		startTime: time.Now(),

		ProbeAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bootstrap_probe_attempts_total",
				Help: "Total provider probe attempts by outcome",
			},
			[]string{"outcome"},
		),
		ProbeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bootstrap_probe_duration_seconds",
				Help:    "Provider probe duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"outcome"},
		),
		Resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bootstrap_resolutions_total",
				Help: "Total module URL resolutions by outcome",
			},
			[]string{"outcome"},
		),
		ManifestFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bootstrap_manifest_fetches_total",
				Help: "Total manifest fetches by outcome",
			},
			[]string{"outcome"},
		),
		ScriptLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bootstrap_script_loads_total",
				Help: "Total script bundle loads by outcome",
			},
			[]string{"outcome"},
		),
		Bootstraps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bootstrap_runs_total",
				Help: "Total bootstrap runs by terminal state",
			},
			[]string{"state"},
		),
	}
}

// IncProbe records a probe attempt outcome ("success", "failure", "retry").
func (m *Metrics) IncProbe(outcome string) {
	if m == nil {
		return
	}
	m.ProbeAttempts.WithLabelValues(outcome).Inc()
}

// ObserveProbe records a probe duration.
func (m *Metrics) ObserveProbe(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProbeDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// IncResolution records a module resolution outcome.
func (m *Metrics) IncResolution(outcome string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(outcome).Inc()
}

// IncManifestFetch records a manifest fetch outcome.
func (m *Metrics) IncManifestFetch(outcome string) {
	if m == nil {
		return
	}
	m.ManifestFetches.WithLabelValues(outcome).Inc()
}

// IncScriptLoad records a script load outcome.
func (m *Metrics) IncScriptLoad(outcome string) {
	if m == nil {
		return
	}
	m.ScriptLoads.WithLabelValues(outcome).Inc()
}

// IncBootstrap records a bootstrap terminal state.
func (m *Metrics) IncBootstrap(state string) {
	if m == nil {
		return
	}
	m.Bootstraps.WithLabelValues(state).Inc()
}

// Uptime returns time since the collector was created.
func (m *Metrics) Uptime() time.Duration {
	if m == nil {
		return 0
	}
	return time.Since(m.startTime)
}
