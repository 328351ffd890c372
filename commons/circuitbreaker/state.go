package circuitbreaker

// State represents the state of the circuit breaker.
type State int

const (
	// StateClosed is the normal operating state. Invocations pass through
	// and outcomes accumulate in the rolling window.
	StateClosed State = iota

	// StateOpen rejects invocations immediately. After the reset cooldown
	// elapses the breaker transitions to StateHalfOpen.
	StateOpen

	// StateHalfOpen admits invocations to probe recovery. A single success
	// closes the circuit; a single failure reopens it.
	StateHalfOpen

	// StateShutdown is terminal. Timers are cancelled, window rotation is
	// stopped and no further transitions are possible.
	StateShutdown
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}
