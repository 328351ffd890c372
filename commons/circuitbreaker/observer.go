package circuitbreaker

import "time"

// Observer receives breaker lifecycle and outcome events. Implementations
// must be fast and must not call back into the breaker; they are invoked
// synchronously while the event is being applied so that exporters see
// events in the exact order the state machine observed them.
type Observer interface {
	OnInvocation(name string)
	OnSuccess(name string, latency time.Duration)
	OnFailure(name string, latency time.Duration)
	OnTimeout(name string, latency time.Duration)
	OnRejection(name string)
	OnStateChange(name string, from, to State)
}
