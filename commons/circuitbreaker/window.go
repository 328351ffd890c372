package circuitbreaker

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// Field selects the counter an increment applies to.
type Field int

const (
	FieldInvocations Field = iota
	FieldSuccesses
	FieldFailures
	FieldTimeouts
)

// bucket accumulates the activity of one time slice of the rolling window.
// Invocations are counted independently of outcomes: a call may be counted
// as both a failure and a timeout, and a rejected call is still an
// invocation.
type bucket struct {
	invocations uint64
	successes   uint64
	failures    uint64
	timeouts    uint64
	latencies   []time.Duration
	open        bool
}

// Snapshot is the aggregate view of a rolling window at one instant. It is
// derived on demand by summing every bucket; mutating it has no effect on
// the window.
type Snapshot struct {
	Invocations uint64
	Successes   uint64
	Failures    uint64
	Timeouts    uint64

	// Latencies holds every sample in the window, ascending.
	Latencies []time.Duration

	// MeanLatency is zero when no samples were recorded.
	MeanLatency time.Duration

	// Percentiles maps each configured percentile to its nearest-rank
	// value. All zero when percentile computation is disabled.
	Percentiles map[float64]time.Duration

	// Open mirrors the current bucket's breaker-open marker.
	Open bool
}

// ErrorRate returns failures over invocations as a percentage, or zero when
// nothing was invoked.
func (s Snapshot) ErrorRate() float64 {
	if s.Invocations == 0 {
		return 0
	}

	return float64(s.Failures) / float64(s.Invocations) * 100
}

// Window tracks counts and latency samples over a rolling time window kept
// as a fixed ring of buckets. Index 0 is the current bucket; rotation drops
// the oldest bucket and prepends a fresh one, keeping total coverage at
// roughly the window duration.
type Window struct {
	mu      sync.Mutex
	buckets []*bucket

	percentilesEnabled bool
	percentiles        []float64

	cancelTick func()
	done       chan struct{}
	stopped    bool
}

// WindowOption configures a Window beyond the required parameters.
type WindowOption func(*windowConfig)

type windowConfig struct {
	percentiles []float64
	trigger     RotationTrigger
}

// WindowPercentileSet replaces the default percentile set.
func WindowPercentileSet(ps []float64) WindowOption {
	return func(wc *windowConfig) {
		wc.percentiles = ps
	}
}

// WindowRotationTrigger subscribes the window to an external rotation
// signal instead of an owned ticker.
func WindowRotationTrigger(t RotationTrigger) WindowOption {
	return func(wc *windowConfig) {
		wc.trigger = t
	}
}

// NewWindow creates a rolling window of bucketCount buckets covering
// duration, and starts its rotation loop immediately.
func NewWindow(bucketCount int, duration time.Duration, percentilesEnabled bool, opts ...WindowOption) (*Window, error) {
	if bucketCount < 1 {
		return nil, fmt.Errorf("%w: bucket count must be at least 1, got %d", ErrInvalidConfig, bucketCount)
	}

	if duration <= 0 {
		return nil, fmt.Errorf("%w: window duration must be positive, got %v", ErrInvalidConfig, duration)
	}

	wc := &windowConfig{percentiles: defaultPercentiles}
	for _, opt := range opts {
		opt(wc)
	}

	if wc.trigger == nil {
		wc.trigger = &tickerTrigger{interval: duration / time.Duration(bucketCount)}
	}

	w := &Window{
		buckets:            make([]*bucket, bucketCount),
		percentilesEnabled: percentilesEnabled,
		percentiles:        wc.percentiles,
		done:               make(chan struct{}),
	}

	for i := range w.buckets {
		w.buckets[i] = &bucket{}
	}

	ticks, cancel := wc.trigger.Subscribe()
	w.cancelTick = cancel

	go w.rotateLoop(ticks)

	return w, nil
}

func (w *Window) rotateLoop(ticks <-chan time.Time) {
	for {
		select {
		case <-ticks:
			w.rotate()
		case <-w.done:
			return
		}
	}
}

// rotate drops the oldest bucket and prepends a fresh current one. The ring
// length never changes.
func (w *Window) rotate() {
	w.mu.Lock()
	defer w.mu.Unlock()

	copy(w.buckets[1:], w.buckets[:len(w.buckets)-1])
	w.buckets[0] = &bucket{}
}

// Increment applies one count to the current bucket, with an optional
// latency sample. Increments keep landing in the frozen current bucket
// after Shutdown; rotation stoppage is not a write lockout.
func (w *Window) Increment(field Field, latency ...time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cur := w.buckets[0]

	switch field {
	case FieldInvocations:
		cur.invocations++
	case FieldSuccesses:
		cur.successes++
	case FieldFailures:
		cur.failures++
	case FieldTimeouts:
		cur.timeouts++
	}

	if len(latency) > 0 {
		cur.latencies = append(cur.latencies, latency[0])
	}
}

// MarkOpen flags the current bucket as recorded while the circuit was open.
// Purely observational; admission is the state machine's job.
func (w *Window) MarkOpen() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buckets[0].open = true
}

// MarkClose clears the current bucket's open marker.
func (w *Window) MarkClose() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buckets[0].open = false
}

// Snapshot aggregates every bucket into an immutable view: summed counters,
// ascending latency samples, mean latency and nearest-rank percentiles.
func (w *Window) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{
		Percentiles: make(map[float64]time.Duration, len(w.percentiles)),
		Open:        w.buckets[0].open,
	}

	for _, b := range w.buckets {
		snap.Invocations += b.invocations
		snap.Successes += b.successes
		snap.Failures += b.failures
		snap.Timeouts += b.timeouts
		snap.Latencies = append(snap.Latencies, b.latencies...)
	}

	sort.Slice(snap.Latencies, func(i, j int) bool { return snap.Latencies[i] < snap.Latencies[j] })

	if len(snap.Latencies) > 0 {
		var total time.Duration
		for _, d := range snap.Latencies {
			total += d
		}

		snap.MeanLatency = total / time.Duration(len(snap.Latencies))
	}

	for _, p := range w.percentiles {
		if w.percentilesEnabled {
			snap.Percentiles[p] = nearestRank(snap.Latencies, p)
		} else {
			snap.Percentiles[p] = 0
		}
	}

	return snap
}

// nearestRank returns the percentile p of the ascending samples using the
// nearest-rank method: index ceil(p*n)-1, clamped so p <= 0 yields the
// minimum and p >= 1 the maximum. No interpolation.
func nearestRank(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}

	if p <= 0 {
		return sorted[0]
	}

	if p >= 1 {
		return sorted[n-1]
	}

	idx := int(math.Ceil(p*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}

	if idx >= n {
		idx = n - 1
	}

	return sorted[idx]
}

// Shutdown stops bucket rotation permanently. Idempotent. Reads after
// shutdown reflect a frozen window and increments still land in the
// no-longer-rotating current bucket.
func (w *Window) Shutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}

	w.stopped = true
	w.cancelTick()
	close(w.done)
}
