package circuitbreaker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus exporter.
type MetricsConfig struct {
	Namespace string
	Subsystem string
	Registry  prometheus.Registerer

	// LatencyBuckets overrides the default histogram buckets (seconds).
	LatencyBuckets []float64
}

// DefaultMetricsConfig returns the default exporter configuration, bound to
// the global Prometheus registerer.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "circuitbreaker",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// MetricsExporter exposes breaker events as Prometheus metrics. Attach it
// to a breaker with WithObserver.
type MetricsExporter struct {
	invocationsTotal *prometheus.CounterVec
	successesTotal   *prometheus.CounterVec
	failuresTotal    *prometheus.CounterVec
	timeoutsTotal    *prometheus.CounterVec
	rejectionsTotal  *prometheus.CounterVec
	stateTransitions *prometheus.CounterVec
	currentState     *prometheus.GaugeVec
	latencySeconds   *prometheus.HistogramVec
}

// NewMetricsExporter registers the breaker metric families on the
// configured registry.
func NewMetricsExporter(config MetricsConfig) *MetricsExporter {
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}

	labels := []string{"circuit_breaker_name"}

	return &MetricsExporter{
		invocationsTotal: promauto.With(config.Registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "invocations_total",
				Help:      "Total number of invocations seen by the circuit breaker, including rejected ones",
			},
			labels,
		),

		successesTotal: promauto.With(config.Registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "successes_total",
				Help:      "Total number of successful invocations",
			},
			labels,
		),

		failuresTotal: promauto.With(config.Registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "failures_total",
				Help:      "Total number of failed invocations, timeouts included",
			},
			labels,
		),

		timeoutsTotal: promauto.With(config.Registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "timeouts_total",
				Help:      "Total number of invocations that exceeded the completion deadline",
			},
			labels,
		),

		rejectionsTotal: promauto.With(config.Registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "rejections_total",
				Help:      "Total number of invocations rejected because the circuit was open",
			},
			labels,
		),

		stateTransitions: promauto.With(config.Registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "state_transitions_total",
				Help:      "Total number of state transitions",
			},
			append(labels, "from_state", "to_state"),
		),

		currentState: promauto.With(config.Registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "state",
				Help:      "Current state of the circuit breaker (0=closed, 1=open, 2=half-open, 3=shutdown)",
			},
			labels,
		),

		latencySeconds: promauto.With(config.Registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "latency_seconds",
				Help:      "Observed latency of forwarded invocations",
				Buckets:   config.LatencyBuckets,
			},
			labels,
		),
	}
}

// OnInvocation implements Observer.
func (me *MetricsExporter) OnInvocation(name string) {
	me.invocationsTotal.WithLabelValues(name).Inc()
}

// OnSuccess implements Observer.
func (me *MetricsExporter) OnSuccess(name string, latency time.Duration) {
	me.successesTotal.WithLabelValues(name).Inc()
	me.latencySeconds.WithLabelValues(name).Observe(latency.Seconds())
}

// OnFailure implements Observer.
func (me *MetricsExporter) OnFailure(name string, latency time.Duration) {
	me.failuresTotal.WithLabelValues(name).Inc()
	me.latencySeconds.WithLabelValues(name).Observe(latency.Seconds())
}

// OnTimeout implements Observer.
func (me *MetricsExporter) OnTimeout(name string, _ time.Duration) {
	me.timeoutsTotal.WithLabelValues(name).Inc()
}

// OnRejection implements Observer.
func (me *MetricsExporter) OnRejection(name string) {
	me.rejectionsTotal.WithLabelValues(name).Inc()
}

// OnStateChange implements Observer.
func (me *MetricsExporter) OnStateChange(name string, from, to State) {
	me.stateTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
	me.currentState.WithLabelValues(name).Set(float64(to))
}
