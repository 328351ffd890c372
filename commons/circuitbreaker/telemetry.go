package circuitbreaker

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// TelemetryObserver exposes breaker events as OpenTelemetry metric
// instruments, as an alternative (or complement) to the Prometheus
// exporter. Attach it with WithObserver.
type TelemetryObserver struct {
	invocations metric.Int64Counter
	successes   metric.Int64Counter
	failures    metric.Int64Counter
	timeouts    metric.Int64Counter
	rejections  metric.Int64Counter
	transitions metric.Int64Counter
	state       metric.Int64Gauge
	latency     metric.Float64Histogram
}

// NewTelemetryObserver creates the breaker instruments on the given meter.
func NewTelemetryObserver(meter metric.Meter) (*TelemetryObserver, error) {
	t := &TelemetryObserver{}

	var err error

	if t.invocations, err = meter.Int64Counter("circuitbreaker.invocations",
		metric.WithDescription("Invocations seen by the circuit breaker, including rejected ones")); err != nil {
		return nil, fmt.Errorf("creating invocations counter: %w", err)
	}

	if t.successes, err = meter.Int64Counter("circuitbreaker.successes",
		metric.WithDescription("Successful invocations")); err != nil {
		return nil, fmt.Errorf("creating successes counter: %w", err)
	}

	if t.failures, err = meter.Int64Counter("circuitbreaker.failures",
		metric.WithDescription("Failed invocations, timeouts included")); err != nil {
		return nil, fmt.Errorf("creating failures counter: %w", err)
	}

	if t.timeouts, err = meter.Int64Counter("circuitbreaker.timeouts",
		metric.WithDescription("Invocations that exceeded the completion deadline")); err != nil {
		return nil, fmt.Errorf("creating timeouts counter: %w", err)
	}

	if t.rejections, err = meter.Int64Counter("circuitbreaker.rejections",
		metric.WithDescription("Invocations rejected because the circuit was open")); err != nil {
		return nil, fmt.Errorf("creating rejections counter: %w", err)
	}

	if t.transitions, err = meter.Int64Counter("circuitbreaker.state_transitions",
		metric.WithDescription("State transitions of the circuit breaker")); err != nil {
		return nil, fmt.Errorf("creating transitions counter: %w", err)
	}

	if t.state, err = meter.Int64Gauge("circuitbreaker.state",
		metric.WithDescription("Current state (0=closed, 1=open, 2=half-open, 3=shutdown)")); err != nil {
		return nil, fmt.Errorf("creating state gauge: %w", err)
	}

	if t.latency, err = meter.Float64Histogram("circuitbreaker.latency",
		metric.WithDescription("Observed latency of forwarded invocations"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating latency histogram: %w", err)
	}

	return t, nil
}

func breakerAttrs(name string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("circuit_breaker_name", name))
}

// OnInvocation implements Observer.
func (t *TelemetryObserver) OnInvocation(name string) {
	t.invocations.Add(context.Background(), 1, breakerAttrs(name))
}

// OnSuccess implements Observer.
func (t *TelemetryObserver) OnSuccess(name string, latency time.Duration) {
	ctx := context.Background()
	t.successes.Add(ctx, 1, breakerAttrs(name))
	t.latency.Record(ctx, latency.Seconds(), breakerAttrs(name))
}

// OnFailure implements Observer.
func (t *TelemetryObserver) OnFailure(name string, latency time.Duration) {
	ctx := context.Background()
	t.failures.Add(ctx, 1, breakerAttrs(name))
	t.latency.Record(ctx, latency.Seconds(), breakerAttrs(name))
}

// OnTimeout implements Observer.
func (t *TelemetryObserver) OnTimeout(name string, _ time.Duration) {
	t.timeouts.Add(context.Background(), 1, breakerAttrs(name))
}

// OnRejection implements Observer.
func (t *TelemetryObserver) OnRejection(name string) {
	t.rejections.Add(context.Background(), 1, breakerAttrs(name))
}

// OnStateChange implements Observer.
func (t *TelemetryObserver) OnStateChange(name string, from, to State) {
	ctx := context.Background()
	t.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("circuit_breaker_name", name),
		attribute.String("from_state", from.String()),
		attribute.String("to_state", to.String()),
	))
	t.state.Record(ctx, int64(to), breakerAttrs(name))
}
