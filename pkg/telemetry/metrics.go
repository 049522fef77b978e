package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for keystonectl.
type Metrics struct {
	config MetricsConfig

	// Sweep metrics
	sweepsStarted   *prometheus.CounterVec
	sweepsCompleted *prometheus.CounterVec
	sweepDuration   *prometheus.HistogramVec

	// Reconciliation metrics
	reconciliations   *prometheus.CounterVec
	reconcileDuration *prometheus.HistogramVec

	// Remote call metrics
	remoteCalls    *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	remoteErrors   *prometheus.CounterVec

	// Error metrics
	errorsByKind *prometheus.CounterVec

	// Policy metrics
	policyViolations *prometheus.CounterVec

	// System metrics
	activeSweeps prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		sweepsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweeps_started_total",
				Help:      "Total number of catalog sweeps started",
			},
			[]string{"dry_run"},
		),
		sweepsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweeps_completed_total",
				Help:      "Total number of catalog sweeps completed",
			},
			[]string{"status"},
		),
		sweepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sweep_duration_seconds",
				Help:      "Duration of catalog sweeps in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		reconciliations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliations_total",
				Help:      "Total number of entry reconciliations by outcome",
			},
			[]string{"state", "outcome"},
		),
		reconcileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reconcile_duration_seconds",
				Help:      "Duration of entry reconciliations in seconds",
				Buckets:   buckets,
			},
			[]string{"state"},
		),

		remoteCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_calls_total",
				Help:      "Total number of identity service calls",
			},
			[]string{"operation"},
		),
		remoteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "remote_call_duration_seconds",
				Help:      "Duration of identity service calls in seconds",
				Buckets:   buckets,
			},
			[]string{"operation"},
		),
		remoteErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_errors_total",
				Help:      "Total number of identity service call failures",
			},
			[]string{"operation"},
		),

		errorsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_kind_total",
				Help:      "Total number of reconciliation errors by kind",
			},
			[]string{"kind"},
		),

		policyViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_violations_total",
				Help:      "Total number of policy violations",
			},
			[]string{"policy", "severity"},
		),

		activeSweeps: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sweeps",
				Help:      "Current number of active sweeps",
			},
		),
	}

	registry.MustRegister(
		m.sweepsStarted,
		m.sweepsCompleted,
		m.sweepDuration,
		m.reconciliations,
		m.reconcileDuration,
		m.remoteCalls,
		m.remoteDuration,
		m.remoteErrors,
		m.errorsByKind,
		m.policyViolations,
		m.activeSweeps,
	)

	return m, nil
}

// Sweep Metrics

// RecordSweepStarted increments the counter for started sweeps.
func (m *Metrics) RecordSweepStarted(dryRun bool) {
	if m == nil || m.sweepsStarted == nil {
		return
	}
	m.sweepsStarted.WithLabelValues(fmt.Sprintf("%t", dryRun)).Inc()
	m.activeSweeps.Inc()
}

// RecordSweepCompleted records a completed sweep with its status and duration.
func (m *Metrics) RecordSweepCompleted(status string, duration time.Duration) {
	if m == nil || m.sweepsCompleted == nil {
		return
	}
	m.sweepsCompleted.WithLabelValues(status).Inc()
	m.sweepDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.activeSweeps.Dec()
}

// Reconciliation Metrics

// RecordReconciliation records one entry reconciliation outcome
// ("changed", "unchanged", "failed").
func (m *Metrics) RecordReconciliation(state, outcome string, duration time.Duration) {
	if m == nil || m.reconciliations == nil {
		return
	}
	m.reconciliations.WithLabelValues(state, outcome).Inc()
	m.reconcileDuration.WithLabelValues(state).Observe(duration.Seconds())
}

// Remote Call Metrics

// RecordRemoteCall records an identity service call with its duration.
func (m *Metrics) RecordRemoteCall(operation string, duration time.Duration) {
	if m == nil || m.remoteCalls == nil {
		return
	}
	m.remoteCalls.WithLabelValues(operation).Inc()
	m.remoteDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRemoteError records an identity service call failure.
func (m *Metrics) RecordRemoteError(operation string) {
	if m == nil || m.remoteErrors == nil {
		return
	}
	m.remoteErrors.WithLabelValues(operation).Inc()
}

// Error Metrics

// RecordError records a reconciliation error by kind.
func (m *Metrics) RecordError(kind string) {
	if m == nil || m.errorsByKind == nil {
		return
	}
	m.errorsByKind.WithLabelValues(kind).Inc()
}

// Policy Metrics

// RecordPolicyViolation records a policy violation.
func (m *Metrics) RecordPolicyViolation(policy, severity string) {
	if m == nil || m.policyViolations == nil {
		return
	}
	m.policyViolations.WithLabelValues(policy, severity).Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
