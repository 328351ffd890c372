package circuitbreaker

import "errors"

// ErrCircuitOpen is returned by Guard.Begin when the circuit is open and the
// invocation is rejected without reaching the downstream service.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ErrInvalidConfig wraps every configuration validation failure. Invalid
// configuration is reported at construction time, never at call time.
var ErrInvalidConfig = errors.New("invalid circuit breaker configuration")
