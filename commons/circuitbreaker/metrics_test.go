package circuitbreaker

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestMetricsExporter(t *testing.T) {
	t.Run("counts outcomes and transitions", func(t *testing.T) {
		registry := prometheus.NewRegistry()

		exporter := NewMetricsExporter(MetricsConfig{
			Namespace: "test",
			Registry:  registry,
		})

		g := newTestGuard(t, WithObserver(exporter), WithVolumeThreshold(4))

		reportSuccess(t, g)

		for i := 0; i < 3; i++ {
			reportFailure(t, g)
		}

		require.Equal(t, StateOpen, g.State())

		// One rejected invocation.
		_, err := g.Begin()
		require.Error(t, err)

		name := "test-service"

		assert.Equal(t, float64(5), testutil.ToFloat64(exporter.invocationsTotal.WithLabelValues(name)))
		assert.Equal(t, float64(1), testutil.ToFloat64(exporter.successesTotal.WithLabelValues(name)))
		assert.Equal(t, float64(3), testutil.ToFloat64(exporter.failuresTotal.WithLabelValues(name)))
		assert.Equal(t, float64(1), testutil.ToFloat64(exporter.rejectionsTotal.WithLabelValues(name)))
		assert.Equal(t, float64(1), testutil.ToFloat64(exporter.stateTransitions.WithLabelValues(name, "closed", "open")))
		assert.Equal(t, float64(StateOpen), testutil.ToFloat64(exporter.currentState.WithLabelValues(name)))
	})

	t.Run("counts timeouts", func(t *testing.T) {
		registry := prometheus.NewRegistry()

		exporter := NewMetricsExporter(MetricsConfig{
			Namespace: "test",
			Registry:  registry,
		})

		g := newTestGuard(t, WithObserver(exporter), WithCallTimeout(10*time.Millisecond))

		_, err := g.Begin()
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return testutil.ToFloat64(exporter.timeoutsTotal.WithLabelValues("test-service")) == 1
		}, time.Second, 5*time.Millisecond)
	})
}

func TestTelemetryObserver(t *testing.T) {
	t.Run("creates instruments and records without error", func(t *testing.T) {
		meter := noop.NewMeterProvider().Meter("test")

		observer, err := NewTelemetryObserver(meter)
		require.NoError(t, err)

		g := newTestGuard(t, WithObserver(observer))

		reportSuccess(t, g)
		reportFailure(t, g)

		assert.NotPanics(t, func() {
			observer.OnRejection("test-service")
			observer.OnTimeout("test-service", time.Millisecond)
			observer.OnStateChange("test-service", StateClosed, StateOpen)
		})
	})
}
