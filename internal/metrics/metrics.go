// Package metrics exposes orchestrator runtime counters and histograms to
// Prometheus via the standard client_golang registry and promhttp handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry groups the orchestrator's exported metric vectors. Callers hold
// one Registry per process and label every observation with a function id.
type Registry struct {
	Restores       *prometheus.CounterVec
	RestoreSeconds *prometheus.HistogramVec
	ColdStarts     *prometheus.CounterVec
	WarmPoolSize   *prometheus.GaugeVec
}

// NewRegistry creates and registers the orchestrator's metric vectors
// against reg. Pass prometheus.NewRegistry() for an isolated registry in
// tests, or prometheus.DefaultRegisterer in production.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		Restores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "function_restores_total",
			Help: "Total number of successful warm-snapshot restores, by function.",
		}, []string{"function_id"}),
		RestoreSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "function_restore_duration_seconds",
			Help: "Observed CRIU restore wall-clock duration, by function.",
			// 1,2,5,10,15,20,50,100 ms, expressed in seconds.
			Buckets: []float64{0.001, 0.002, 0.005, 0.010, 0.015, 0.020, 0.050, 0.100},
		}, []string{"function_id"}),
		ColdStarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "function_cold_starts_total",
			Help: "Total number of fresh (non-restore) process spawns, by function.",
		}, []string{"function_id"}),
		WarmPoolSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "warm_pool_size",
			Help: "Current number of cached warm snapshots, by function.",
		}, []string{"function_id"}),
	}

	reg.MustRegister(m.Restores, m.RestoreSeconds, m.ColdStarts, m.WarmPoolSize)
	return m
}

// ObserveRestore records a successful restore's duration for functionID.
func (m *Registry) ObserveRestore(functionID string, seconds float64) {
	m.Restores.WithLabelValues(functionID).Inc()
	m.RestoreSeconds.WithLabelValues(functionID).Observe(seconds)
}

// ObserveColdStart records a fresh spawn for functionID.
func (m *Registry) ObserveColdStart(functionID string) {
	m.ColdStarts.WithLabelValues(functionID).Inc()
}

// SetWarmPoolSize sets the current warm-pool gauge for functionID.
func (m *Registry) SetWarmPoolSize(functionID string, size float64) {
	m.WarmPoolSize.WithLabelValues(functionID).Set(size)
}

// Handler returns an http.Handler exposing metrics in the Prometheus
// exposition format, gathered from gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
