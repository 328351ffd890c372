// Package http provides HTTP middleware adapting the serving layer to the
// circuit breaker core.
package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/LerianStudio/lib-breaker/commons/circuitbreaker"
	"github.com/LerianStudio/lib-breaker/commons/log"
)

const headerRequestID = "X-Request-Id"

// WithCircuitBreaker guards every request through the given breaker stack.
// Rejected requests are answered with 503 without reaching the handler
// chain. Each forwarded request delivers exactly one terminal signal to the
// breaker: the response status on normal completion, or an abort when the
// handler panics.
func WithCircuitBreaker(guard *circuitbreaker.Guard, logger log.Logger) fiber.Handler {
	if logger == nil {
		logger = &log.NoneLogger{}
	}

	return func(c *fiber.Ctx) error {
		requestID := c.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
			c.Set(headerRequestID, requestID)
		}

		call, err := guard.Begin()
		if err != nil {
			if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
				logger.WithFields("request_id", requestID, "path", c.Path()).
					Warnf("Request rejected - circuit breaker [%s] is open", guard.Name())

				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error":   "service unavailable",
					"message": "the downstream service is temporarily unavailable, please retry later",
				})
			}

			return err
		}

		// A panic in the handler chain is the abrupt-termination signal:
		// the request ended without a normal completion.
		defer func() {
			if r := recover(); r != nil {
				call.Abort()
				panic(r)
			}
		}()

		handlerErr := c.Next()

		status := c.Response().StatusCode()

		var fiberErr *fiber.Error
		if errors.As(handlerErr, &fiberErr) {
			status = fiberErr.Code
		}

		call.Complete(circuitbreaker.Result{
			StatusCode: status,
			Err:        handlerErr,
		})

		return handlerErr
	}
}
