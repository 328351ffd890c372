package circuitbreaker

import (
	"sync"
	"time"

	"github.com/LerianStudio/lib-breaker/commons/log"
)

// CircuitBreaker is the discrete state machine deciding when to trip, when
// to probe recovery and when to reset. It consumes the rolling window's
// statistics and owns the two scheduled transitions: the reset timer that
// moves an open circuit to half-open, and the warm-up timer that ends the
// grace period after construction.
//
// All transitions are serialized behind a single mutex so that outcome
// reports and timer firings are applied strictly in the order they are
// observed, never interleaved.
type CircuitBreaker struct {
	name   string
	cfg    *config
	window *Window
	logger log.Logger

	mu           sync.Mutex
	state        State
	resetTimer   *time.Timer
	warmUpTimer  *time.Timer
	warmUpActive bool
}

// newCircuitBreaker wires a state machine to its window and starts the
// warm-up timer when the grace period is enabled.
func newCircuitBreaker(name string, window *Window, cfg *config) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		window: window,
		logger: cfg.logger,
		state:  StateClosed,
	}

	if cfg.warmUp {
		cb.warmUpActive = true
		cb.warmUpTimer = time.AfterFunc(cfg.windowDuration, cb.onWarmUpExpiry)
	}

	return cb
}

// Name returns the breaker name used in logs and metrics.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}

// Snapshot returns the aggregate statistics of the underlying window.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	return cb.window.Snapshot()
}

// RecordSuccess counts a successful invocation. A single success while
// half-open closes the circuit; clearing the volume threshold is not
// required to leave the probe state.
func (cb *CircuitBreaker) RecordSuccess(latency time.Duration) {
	cb.window.Increment(FieldSuccesses, latency)

	for _, o := range cb.cfg.observers {
		o.OnSuccess(cb.name, latency)
	}

	cb.logger.Debugf("Circuit Breaker [%s] recorded success (%v)", cb.name, latency)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.logger.Infof("Circuit Breaker [%s] probe succeeded - closing circuit", cb.name)
		cb.toClosed()
	}
}

// RecordFailure counts a failed invocation and evaluates the open decision.
// The triggering failure is recorded before the window is consulted, so it
// counts toward both invocations and failures in the same decision.
func (cb *CircuitBreaker) RecordFailure(latency time.Duration) {
	cb.window.Increment(FieldFailures, latency)

	for _, o := range cb.cfg.observers {
		o.OnFailure(cb.name, latency)
	}

	cb.logger.Debugf("Circuit Breaker [%s] recorded failure (%v)", cb.name, latency)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.evaluateTrip()
}

// evaluateTrip applies the open-decision policy. Caller holds the lock.
func (cb *CircuitBreaker) evaluateTrip() {
	if cb.state == StateShutdown || cb.state == StateOpen {
		return
	}

	// Failures during warm-up are absorbed silently.
	if cb.warmUpActive {
		return
	}

	// A single failure during the probe reopens immediately, bypassing
	// the volume and rate tests.
	if cb.state == StateHalfOpen {
		cb.logger.Warnf("Circuit Breaker [%s] probe failed - reopening circuit", cb.name)
		cb.toOpen()

		return
	}

	snap := cb.window.Snapshot()

	if snap.Invocations == 0 || snap.Invocations < cb.cfg.volumeThreshold {
		return
	}

	if rate := snap.ErrorRate(); rate > cb.cfg.errorThreshold {
		cb.logger.Errorf("Circuit Breaker [%s] error rate %.2f%% exceeded threshold %.2f%% (%d/%d failed)",
			cb.name, rate, cb.cfg.errorThreshold, snap.Failures, snap.Invocations)
		cb.toOpen()
	}
}

// Open trips the circuit explicitly. A redundant call while already open is
// a no-op and does not restart the reset timer.
func (cb *CircuitBreaker) Open() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateShutdown || cb.state == StateOpen {
		return
	}

	cb.toOpen()
}

// Close resets the circuit explicitly. A redundant call while already
// closed is a no-op.
func (cb *CircuitBreaker) Close() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateShutdown || cb.state == StateClosed {
		return
	}

	cb.toClosed()
}

// toOpen performs the genuine transition to open: marks the window, starts
// the reset timer. Caller holds the lock.
func (cb *CircuitBreaker) toOpen() {
	cb.window.MarkOpen()
	cb.setState(StateOpen)

	if cb.resetTimer != nil {
		cb.resetTimer.Stop()
	}

	cb.resetTimer = time.AfterFunc(cb.cfg.resetTimeout, cb.onResetExpiry)
}

// toClosed cancels the pending reset timer and clears the window marker.
// Caller holds the lock.
func (cb *CircuitBreaker) toClosed() {
	if cb.resetTimer != nil {
		cb.resetTimer.Stop()
		cb.resetTimer = nil
	}

	cb.window.MarkClose()
	cb.setState(StateClosed)
}

// onResetExpiry moves an open circuit to half-open once the cooldown
// elapses. The window's open marker is intentionally left untouched; the
// probe outcome decides what happens next.
func (cb *CircuitBreaker) onResetExpiry() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.resetTimer = nil

	if cb.state != StateOpen {
		return
	}

	cb.logger.Infof("Circuit Breaker [%s] cooldown elapsed - granting half-open probe", cb.name)
	cb.setState(StateHalfOpen)
}

// onWarmUpExpiry ends the grace period.
func (cb *CircuitBreaker) onWarmUpExpiry() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateShutdown {
		return
	}

	cb.warmUpActive = false
	cb.warmUpTimer = nil

	cb.logger.Infof("Circuit Breaker [%s] warm-up period ended", cb.name)
}

// Shutdown moves the breaker to its terminal state: both timers are
// cancelled and window rotation stops permanently. Idempotent; no
// transition out of shutdown is possible.
func (cb *CircuitBreaker) Shutdown() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateShutdown {
		return
	}

	if cb.resetTimer != nil {
		cb.resetTimer.Stop()
		cb.resetTimer = nil
	}

	if cb.warmUpTimer != nil {
		cb.warmUpTimer.Stop()
		cb.warmUpTimer = nil
	}

	cb.window.Shutdown()
	cb.setState(StateShutdown)
}

// setState transitions the state and notifies observers in event order.
// The user callback runs on its own goroutine so it cannot deadlock the
// state machine. Caller holds the lock.
func (cb *CircuitBreaker) setState(to State) {
	from := cb.state
	if from == to {
		return
	}

	cb.state = to

	cb.logger.Warnf("Circuit Breaker [%s] state changed: %s -> %s", cb.name, from, to)

	for _, o := range cb.cfg.observers {
		o.OnStateChange(cb.name, from, to)
	}

	if cb.cfg.onStateChange != nil {
		go cb.cfg.onStateChange(cb.name, from, to)
	}
}
