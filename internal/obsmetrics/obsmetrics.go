// Package obsmetrics exposes the pywr serve layer's Prometheus metrics: run
// counters, timestep solve duration, and solver iteration counts, all
// promauto-built into one struct behind a single Init call.
package obsmetrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the serve layer's Prometheus surface.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDuration        *prometheus.HistogramVec
	RunsInFlight       prometheus.Gauge
	TimestepDuration   *prometheus.HistogramVec
	SolverIterations   *prometheus.HistogramVec
	ScenarioFailures   *prometheus.CounterVec
}

var defaultMetrics *Metrics

// Init registers the metrics families once under namespace (typically
// "pywr"). Calling it twice would panic on duplicate registration, matching
// promauto's own behaviour; callers should call it exactly once at startup.
func Init(namespace string) *Metrics {
	m := &Metrics{
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of model runs submitted to pywr serve.",
			},
			[]string{"status"},
		),
		RunDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall-clock duration of a whole scenario-parallel run.",
				Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 300, 900},
			},
			[]string{"status"},
		),
		RunsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "runs_in_flight",
				Help:      "Number of runs currently executing.",
			},
		),
		TimestepDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "timestep_solve_duration_seconds",
				Help:      "Duration of one timestep's LP/MILP solve.",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"scenario"},
		),
		SolverIterations: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "solver_iterations",
				Help:      "Simplex/branch-and-bound iterations per solve.",
				Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
			[]string{"scenario"},
		),
		ScenarioFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scenario_failures_total",
				Help:      "Scenario runs that ended in an apperror, by error code.",
			},
			[]string{"code"},
		),
	}
	defaultMetrics = m
	return m
}

// Get returns the process-wide metrics, initializing a default "pywr"
// namespace if Init hasn't run yet (e.g. under `pywr run` without serve).
func Get() *Metrics {
	if defaultMetrics == nil {
		return Init("pywr")
	}
	return defaultMetrics
}

func (m *Metrics) RecordRun(status string, d time.Duration) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (m *Metrics) RecordTimestep(scenario string, d time.Duration) {
	m.TimestepDuration.WithLabelValues(scenario).Observe(d.Seconds())
}

func (m *Metrics) RecordSolverIterations(scenario string, iterations int) {
	m.SolverIterations.WithLabelValues(scenario).Observe(float64(iterations))
}

func (m *Metrics) RecordScenarioFailure(code string) {
	m.ScenarioFailures.WithLabelValues(code).Inc()
}

// Handler serves /metrics for a prometheus scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}
