package circuitbreaker

import (
	"sync"
	"time"
)

// RotationTrigger supplies bucket-rotation ticks to one or more rolling
// windows. Subscribe returns a tick channel and a cancel function that
// releases the subscription; cancel must be safe to call more than once.
type RotationTrigger interface {
	Subscribe() (ticks <-chan time.Time, cancel func())
}

// tickerTrigger is the default trigger: a time.Ticker owned by a single
// window.
type tickerTrigger struct {
	interval time.Duration
}

func (t *tickerTrigger) Subscribe() (<-chan time.Time, func()) {
	ticker := time.NewTicker(t.interval)

	var once sync.Once

	return ticker.C, func() {
		once.Do(ticker.Stop)
	}
}

// SharedTicker broadcasts one ticker to every subscribed window so that
// many co-located breakers rotate on a single timer.
type SharedTicker struct {
	mu     sync.Mutex
	subs   map[int]chan time.Time
	nextID int
	done   chan struct{}
}

// NewSharedTicker starts a broadcast ticker with the given interval.
func NewSharedTicker(interval time.Duration) *SharedTicker {
	st := &SharedTicker{
		subs: make(map[int]chan time.Time),
		done: make(chan struct{}),
	}

	go st.loop(interval)

	return st
}

func (st *SharedTicker) loop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			st.broadcast(now)
		case <-st.done:
			return
		}
	}
}

func (st *SharedTicker) broadcast(now time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, ch := range st.subs {
		// Drop the tick for subscribers that have fallen behind rather
		// than block the broadcast loop.
		select {
		case ch <- now:
		default:
		}
	}
}

// Subscribe implements RotationTrigger.
func (st *SharedTicker) Subscribe() (<-chan time.Time, func()) {
	st.mu.Lock()
	defer st.mu.Unlock()

	id := st.nextID
	st.nextID++

	ch := make(chan time.Time, 1)
	st.subs[id] = ch

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			st.mu.Lock()
			delete(st.subs, id)
			st.mu.Unlock()
		})
	}
}

// Stop halts the broadcast loop. Existing subscriptions stop receiving
// ticks but remain valid to cancel.
func (st *SharedTicker) Stop() {
	st.mu.Lock()
	defer st.mu.Unlock()

	select {
	case <-st.done:
	default:
		close(st.done)
	}
}
