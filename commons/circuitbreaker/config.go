package circuitbreaker

import (
	"fmt"
	"time"

	"github.com/LerianStudio/lib-breaker/commons/log"
)

// Result carries the terminal outcome of a forwarded invocation. StatusCode
// follows HTTP conventions; Err is set when the downstream returned a Go
// error instead of (or in addition to) a status.
type Result struct {
	StatusCode int
	Err        error
}

// ErrorPredicate classifies a completed invocation. Returning true records
// the invocation as a failure.
type ErrorPredicate func(Result) bool

// DefaultErrorPredicate treats any Go error or any client/server error
// status (>= 400) as a failure.
func DefaultErrorPredicate(r Result) bool {
	return r.Err != nil || r.StatusCode >= 400
}

// config holds the full configuration for a breaker stack.
type config struct {
	windowDuration     time.Duration
	bucketCount        int
	percentilesEnabled bool
	percentiles        []float64

	callTimeout     time.Duration // 0 disables the completion deadline
	resetTimeout    time.Duration
	errorThreshold  float64 // percentage, 0-100
	volumeThreshold uint64
	warmUp          bool
	logOnly         bool
	enabled         bool

	predicate     ErrorPredicate
	logger        log.Logger
	onStateChange func(name string, from, to State)
	observers     []Observer
	trigger       RotationTrigger
}

// defaultPercentiles is the percentile set reported by snapshots when none
// is configured explicitly.
var defaultPercentiles = []float64{0, 0.25, 0.5, 0.75, 0.9, 0.95, 0.99, 1}

func defaultConfig() *config {
	return &config{
		windowDuration:     10 * time.Second,
		bucketCount:        10,
		percentilesEnabled: true,
		percentiles:        defaultPercentiles,
		callTimeout:        30 * time.Second,
		resetTimeout:       30 * time.Second,
		errorThreshold:     50,
		volumeThreshold:    10,
		enabled:            true,
		predicate:          DefaultErrorPredicate,
		logger:             &log.NoneLogger{},
	}
}

func (c *config) validate() error {
	if c.windowDuration <= 0 {
		return fmt.Errorf("%w: window duration must be positive, got %v", ErrInvalidConfig, c.windowDuration)
	}

	if c.bucketCount < 1 {
		return fmt.Errorf("%w: bucket count must be at least 1, got %d", ErrInvalidConfig, c.bucketCount)
	}

	if c.callTimeout < 0 {
		return fmt.Errorf("%w: call timeout must not be negative, got %v", ErrInvalidConfig, c.callTimeout)
	}

	if c.resetTimeout <= 0 {
		return fmt.Errorf("%w: reset timeout must be positive, got %v", ErrInvalidConfig, c.resetTimeout)
	}

	if c.errorThreshold < 0 || c.errorThreshold > 100 {
		return fmt.Errorf("%w: error threshold must be a percentage between 0 and 100, got %v", ErrInvalidConfig, c.errorThreshold)
	}

	for _, p := range c.percentiles {
		if p < 0 || p > 1 {
			return fmt.Errorf("%w: percentile must be between 0 and 1, got %v", ErrInvalidConfig, p)
		}
	}

	return nil
}

// Option configures a breaker stack created by New.
type Option func(*config)

// WithWindowDuration sets the total duration covered by the rolling window.
func WithWindowDuration(d time.Duration) Option {
	return func(c *config) {
		c.windowDuration = d
	}
}

// WithBucketCount sets the number of buckets the rolling window is split
// into. Granularity of the window is duration/count.
func WithBucketCount(n int) Option {
	return func(c *config) {
		c.bucketCount = n
	}
}

// WithPercentiles enables or disables percentile computation on snapshots.
// When disabled every percentile is reported as zero while raw samples
// remain retrievable.
func WithPercentiles(enabled bool) Option {
	return func(c *config) {
		c.percentilesEnabled = enabled
	}
}

// WithPercentileSet replaces the default percentile set (values in [0, 1]).
func WithPercentileSet(ps []float64) Option {
	return func(c *config) {
		c.percentiles = ps
	}
}

// WithCallTimeout sets the completion deadline for forwarded invocations.
// A deadline expiry records a timeout; the downstream call itself is not
// cancelled.
func WithCallTimeout(d time.Duration) Option {
	return func(c *config) {
		c.callTimeout = d
	}
}

// WithoutCallTimeout disables the completion deadline entirely.
func WithoutCallTimeout() Option {
	return func(c *config) {
		c.callTimeout = 0
	}
}

// WithResetTimeout sets the cooldown an open circuit waits before probing
// recovery in half-open.
func WithResetTimeout(d time.Duration) Option {
	return func(c *config) {
		c.resetTimeout = d
	}
}

// WithErrorThreshold sets the error-rate percentage above which the circuit
// opens.
func WithErrorThreshold(percentage float64) Option {
	return func(c *config) {
		c.errorThreshold = percentage
	}
}

// WithVolumeThreshold sets the minimum number of invocations in the window
// before the error rate is trusted.
func WithVolumeThreshold(n uint64) Option {
	return func(c *config) {
		c.volumeThreshold = n
	}
}

// WithWarmUp enables the warm-up grace period: failures recorded during the
// first window duration after construction never trip the circuit.
func WithWarmUp() Option {
	return func(c *config) {
		c.warmUp = true
	}
}

// WithLogOnly makes an open circuit forward invocations anyway, logging the
// rejection it would have issued. Useful for dry-running thresholds.
func WithLogOnly() Option {
	return func(c *config) {
		c.logOnly = true
	}
}

// WithDisabled turns the guard into a passthrough: every invocation is
// admitted and nothing is recorded.
func WithDisabled() Option {
	return func(c *config) {
		c.enabled = false
	}
}

// WithErrorPredicate replaces the default failure classification.
func WithErrorPredicate(p ErrorPredicate) Option {
	return func(c *config) {
		if p != nil {
			c.predicate = p
		}
	}
}

// WithLogger sets the logger for breaker events.
func WithLogger(l log.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOnStateChange sets a callback invoked on every state transition. The
// callback runs on its own goroutine and must not be relied on for
// ordering.
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(c *config) {
		c.onStateChange = fn
	}
}

// WithObserver attaches an observer for breaker events. May be given
// multiple times.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithRotationTrigger subscribes the rolling window to an external rotation
// signal instead of an owned ticker. Lets many co-located breakers share a
// single timer.
func WithRotationTrigger(t RotationTrigger) Option {
	return func(c *config) {
		c.trigger = t
	}
}
