// Package circuitbreaker protects callers from repeatedly invoking a
// failing downstream operation. Outcomes are tracked in a rolling time
// window of fixed buckets; once the error rate over a minimum volume of
// invocations crosses a threshold the circuit opens and further
// invocations are short-circuited until a cooldown elapses and a half-open
// probe verifies recovery.
package circuitbreaker

import (
	"sync"
	"time"
)

// Guard is the per-invocation front of a breaker stack: it decides whether
// to admit or reject each call, arms the completion deadline and classifies
// the eventual outcome before feeding it to the state machine.
type Guard struct {
	name    string
	cfg     *config
	window  *Window
	breaker *CircuitBreaker
}

// New builds a complete breaker stack (rolling window, state machine,
// guard) for one protected endpoint. Configuration errors are reported
// here, never at call time.
func New(name string, opts ...Option) (*Guard, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	windowOpts := []WindowOption{WindowPercentileSet(cfg.percentiles)}
	if cfg.trigger != nil {
		windowOpts = append(windowOpts, WindowRotationTrigger(cfg.trigger))
	}

	window, err := NewWindow(cfg.bucketCount, cfg.windowDuration, cfg.percentilesEnabled, windowOpts...)
	if err != nil {
		return nil, err
	}

	return &Guard{
		name:    name,
		cfg:     cfg,
		window:  window,
		breaker: newCircuitBreaker(name, window, cfg),
	}, nil
}

// Name returns the guard's breaker name.
func (g *Guard) Name() string {
	return g.name
}

// Breaker exposes the underlying state machine.
func (g *Guard) Breaker() *CircuitBreaker {
	return g.breaker
}

// State returns the current circuit state.
func (g *Guard) State() State {
	return g.breaker.State()
}

// Snapshot returns the aggregate statistics of the rolling window.
func (g *Guard) Snapshot() Snapshot {
	return g.window.Snapshot()
}

// Shutdown tears the stack down: terminal state, timers cancelled, window
// rotation stopped. Idempotent.
func (g *Guard) Shutdown() {
	g.breaker.Shutdown()
}

// Begin starts one guarded invocation. The invocation counter is
// incremented unconditionally, even when the call is subsequently
// rejected. When the circuit is open the call is rejected with
// ErrCircuitOpen unless log-only mode is set, in which case it is admitted
// anyway and only the would-be rejection is logged.
//
// The returned Call must receive exactly one terminal signal: Complete or
// Abort. When a completion deadline is configured the deadline may settle
// the call first; the later signal is then a no-op.
func (g *Guard) Begin() (*Call, error) {
	if !g.cfg.enabled {
		return &Call{disabled: true}, nil
	}

	g.window.Increment(FieldInvocations)

	for _, o := range g.cfg.observers {
		o.OnInvocation(g.name)
	}

	if g.breaker.State() == StateOpen {
		if !g.cfg.logOnly {
			for _, o := range g.cfg.observers {
				o.OnRejection(g.name)
			}

			g.cfg.logger.Warnf("Circuit Breaker [%s] is OPEN - invocation rejected", g.name)

			return nil, ErrCircuitOpen
		}

		g.cfg.logger.Warnf("Circuit Breaker [%s] is OPEN - log-only mode, forwarding anyway", g.name)
	}

	c := &Call{
		guard: g,
		start: time.Now(),
	}

	if g.cfg.callTimeout > 0 {
		c.deadline = time.AfterFunc(g.cfg.callTimeout, c.onDeadline)
	}

	return c, nil
}

// Call is one admitted invocation awaiting its terminal signal. The first
// of deadline expiry, Complete or Abort settles the call; the others are
// no-ops.
type Call struct {
	guard    *Guard
	start    time.Time
	deadline *time.Timer
	once     sync.Once
	disabled bool
}

// Complete reports the downstream's terminal result. The pending deadline
// is cancelled and the result is classified by the configured error
// predicate into a success or failure report.
func (c *Call) Complete(r Result) {
	if c.disabled {
		return
	}

	c.once.Do(func() {
		c.stopDeadline()

		elapsed := time.Since(c.start)

		if c.guard.cfg.predicate(r) {
			c.guard.cfg.logger.Debugf("Circuit Breaker [%s] invocation failed (status=%d err=%v)", c.guard.name, r.StatusCode, r.Err)
			c.guard.breaker.RecordFailure(elapsed)

			return
		}

		c.guard.breaker.RecordSuccess(elapsed)
	})
}

// Abort reports that the invocation ended without a normal completion, for
// example because the consumer disconnected. Counted as a failure
// unconditionally, regardless of the error predicate.
func (c *Call) Abort() {
	if c.disabled {
		return
	}

	c.once.Do(func() {
		c.stopDeadline()

		elapsed := time.Since(c.start)

		c.guard.cfg.logger.Warnf("Circuit Breaker [%s] invocation aborted after %v", c.guard.name, elapsed)
		c.guard.breaker.RecordFailure(elapsed)
	})
}

// onDeadline records a timeout when the completion deadline fires before a
// terminal signal. The downstream operation is not cancelled; only the
// bookkeeping reacts. A late completion arriving afterwards is a no-op.
func (c *Call) onDeadline() {
	c.once.Do(func() {
		elapsed := time.Since(c.start)

		// The latency sample rides on the failure report; counting it
		// here as well would double it in the percentile input.
		c.guard.window.Increment(FieldTimeouts)

		for _, o := range c.guard.cfg.observers {
			o.OnTimeout(c.guard.name, elapsed)
		}

		c.guard.cfg.logger.Warnf("Circuit Breaker [%s] invocation timed out after %v", c.guard.name, elapsed)
		c.guard.breaker.RecordFailure(elapsed)
	})
}

func (c *Call) stopDeadline() {
	if c.deadline != nil {
		c.deadline.Stop()
	}
}
