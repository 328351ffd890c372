package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager(t *testing.T) {
	t.Run("returns the same breaker for the same service", func(t *testing.T) {
		m := NewManager(nil)
		t.Cleanup(m.ShutdownAll)

		first, err := m.GetOrCreate("payments")
		require.NoError(t, err)

		second, err := m.GetOrCreate("payments")
		require.NoError(t, err)

		assert.Same(t, first, second)
	})

	t.Run("propagates construction errors", func(t *testing.T) {
		m := NewManager(nil)

		_, err := m.GetOrCreate("broken", WithBucketCount(-1))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("reports state for registered services only", func(t *testing.T) {
		m := NewManager(nil)
		t.Cleanup(m.ShutdownAll)

		_, err := m.GetOrCreate("payments")
		require.NoError(t, err)

		state, exists := m.State("payments")
		assert.True(t, exists)
		assert.Equal(t, StateClosed, state)

		_, exists = m.State("unknown")
		assert.False(t, exists)
	})

	t.Run("health follows circuit state", func(t *testing.T) {
		m := NewManager(nil)
		t.Cleanup(m.ShutdownAll)

		guard, err := m.GetOrCreate("payments")
		require.NoError(t, err)

		assert.True(t, m.IsHealthy("payments"))

		guard.Breaker().Open()
		assert.False(t, m.IsHealthy("payments"))
	})

	t.Run("reset forces the circuit closed", func(t *testing.T) {
		m := NewManager(nil)
		t.Cleanup(m.ShutdownAll)

		guard, err := m.GetOrCreate("payments")
		require.NoError(t, err)

		guard.Breaker().Open()
		m.Reset("payments")

		assert.Equal(t, StateClosed, guard.State())

		// Resetting an unknown service is a no-op.
		assert.NotPanics(t, func() { m.Reset("unknown") })
	})

	t.Run("lists registered services", func(t *testing.T) {
		m := NewManager(nil)
		t.Cleanup(m.ShutdownAll)

		_, err := m.GetOrCreate("payments")
		require.NoError(t, err)

		_, err = m.GetOrCreate("ledger")
		require.NoError(t, err)

		assert.ElementsMatch(t, []string{"payments", "ledger"}, m.Services())
	})

	t.Run("shutdown all is terminal for every breaker", func(t *testing.T) {
		m := NewManager(nil)

		guard, err := m.GetOrCreate("payments")
		require.NoError(t, err)

		m.ShutdownAll()
		m.ShutdownAll() // idempotent

		assert.Equal(t, StateShutdown, guard.State())
	})

	t.Run("concurrent GetOrCreate yields one instance", func(t *testing.T) {
		m := NewManager(nil)
		t.Cleanup(m.ShutdownAll)

		var wg sync.WaitGroup

		guards := make([]*Guard, 8)

		for i := range guards {
			wg.Add(1)

			go func(i int) {
				defer wg.Done()

				g, err := m.GetOrCreate("payments")
				assert.NoError(t, err)

				guards[i] = g
			}(i)
		}

		wg.Wait()

		for _, g := range guards[1:] {
			assert.Same(t, guards[0], g)
		}
	})
}

func TestHealthChecker(t *testing.T) {
	t.Run("heals an open circuit when the probe succeeds", func(t *testing.T) {
		m := NewManager(nil)
		t.Cleanup(m.ShutdownAll)

		guard, err := m.GetOrCreate("payments", WithResetTimeout(time.Minute))
		require.NoError(t, err)

		guard.Breaker().Open()

		hc := NewHealthChecker(m, 10*time.Millisecond, nil)
		hc.Register("payments", func(context.Context) error { return nil })
		hc.Start()

		t.Cleanup(hc.Stop)

		require.Eventually(t, func() bool {
			return guard.State() == StateClosed
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("leaves the circuit open while the probe fails", func(t *testing.T) {
		m := NewManager(nil)
		t.Cleanup(m.ShutdownAll)

		guard, err := m.GetOrCreate("payments", WithResetTimeout(time.Minute))
		require.NoError(t, err)

		guard.Breaker().Open()

		hc := NewHealthChecker(m, 10*time.Millisecond, nil)
		hc.Register("payments", func(context.Context) error { return errors.New("still down") })
		hc.Start()

		t.Cleanup(hc.Stop)

		time.Sleep(60 * time.Millisecond)
		assert.Equal(t, StateOpen, guard.State())
	})

	t.Run("reports status for registered services", func(t *testing.T) {
		m := NewManager(nil)
		t.Cleanup(m.ShutdownAll)

		_, err := m.GetOrCreate("payments")
		require.NoError(t, err)

		hc := NewHealthChecker(m, time.Minute, nil)
		hc.Register("payments", func(context.Context) error { return nil })

		assert.Equal(t, map[string]string{"payments": "closed"}, hc.Status())
	})
}
