package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LerianStudio/lib-breaker/commons/circuitbreaker"
)

func newGuardedApp(t *testing.T, opts ...circuitbreaker.Option) (*fiber.App, *circuitbreaker.Guard) {
	t.Helper()

	base := []circuitbreaker.Option{
		circuitbreaker.WithVolumeThreshold(2),
		circuitbreaker.WithErrorThreshold(50),
		circuitbreaker.WithResetTimeout(time.Minute),
		circuitbreaker.WithoutCallTimeout(),
	}

	guard, err := circuitbreaker.New("api", append(base, opts...)...)
	require.NoError(t, err)

	t.Cleanup(guard.Shutdown)

	app := fiber.New()
	app.Use(WithCircuitBreaker(guard, nil))

	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/fail", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusInternalServerError)
	})
	app.Get("/error", func(*fiber.Ctx) error {
		return fiber.ErrBadGateway
	})

	return app, guard
}

func TestWithCircuitBreaker(t *testing.T) {
	t.Run("forwards requests while the circuit is closed", func(t *testing.T) {
		app, guard := newGuardedApp(t)

		resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		snap := guard.Snapshot()
		assert.Equal(t, uint64(1), snap.Invocations)
		assert.Equal(t, uint64(1), snap.Successes)
	})

	t.Run("assigns a request id when the client sends none", func(t *testing.T) {
		app, _ := newGuardedApp(t)

		resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
	})

	t.Run("error statuses count as failures and trip the circuit", func(t *testing.T) {
		app, guard := newGuardedApp(t)

		for i := 0; i < 2; i++ {
			resp, err := app.Test(httptest.NewRequest("GET", "/fail", nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
		}

		assert.Equal(t, circuitbreaker.StateOpen, guard.State())
	})

	t.Run("fiber errors count as failures", func(t *testing.T) {
		app, guard := newGuardedApp(t)

		_, err := app.Test(httptest.NewRequest("GET", "/error", nil))
		require.NoError(t, err)

		snap := guard.Snapshot()
		assert.Equal(t, uint64(1), snap.Failures)
	})

	t.Run("open circuit answers 503 without reaching the handler", func(t *testing.T) {
		app, guard := newGuardedApp(t)

		guard.Breaker().Open()

		resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

		snap := guard.Snapshot()
		assert.Equal(t, uint64(1), snap.Invocations)
		assert.Equal(t, uint64(0), snap.Successes)
	})

	t.Run("log-only mode forwards while open", func(t *testing.T) {
		app, guard := newGuardedApp(t, circuitbreaker.WithLogOnly())

		guard.Breaker().Open()

		resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		snap := guard.Snapshot()
		assert.Equal(t, uint64(1), snap.Invocations)
		assert.Equal(t, uint64(1), snap.Successes)
	})
}
