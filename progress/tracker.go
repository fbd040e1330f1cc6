// Package progress accumulates asset completion counts into a monotonic
// fraction and pushes each update to a single observer.
package progress

import (
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors
var (
	ErrNegativeTotal = errors.New("progress: negative total")
	ErrMidCycleReset = errors.New("progress: reset during an active cycle")
)

// Observer receives each new fraction. Invocations are strictly
// serialized and the fraction sequence is non-decreasing; the callback
// must not call back into the Tracker.
type Observer func(fraction float64)

// Tracker counts completed units out of a fixed total. Safe for
// concurrent Advance callers; notification order matches advancement
// order. A zero total represents the degenerate empty cycle, already
// complete at fraction 1.0.
type Tracker struct {
	mu        sync.Mutex
	total     int
	completed int
	observer  Observer
}

// New creates a tracker for a cycle of total units
func New(total int, obs Observer) (*Tracker, error) {
	if total < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeTotal, total)
	}
	return &Tracker{total: total, observer: obs}, nil
}

// Advance records one completed unit and returns the new fraction.
// The count never exceeds the total; advancing a finished tracker is a
// no-op that returns 1.0 (clamp, no overshoot).
func (t *Tracker) Advance() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.completed < t.total {
		t.completed++
	}
	f := t.fractionLocked()
	if t.observer != nil {
		// Called under the lock: guarantees serialized, ordered delivery
		t.observer(f)
	}
	return f
}

// FinishEmpty reports the immediate completion of a zero-length cycle
func (t *Tracker) FinishEmpty() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.total != 0 {
		return fmt.Errorf("progress: FinishEmpty on cycle of %d units", t.total)
	}
	if t.observer != nil {
		t.observer(1.0)
	}
	return nil
}

// Fraction returns the current completion fraction in [0, 1]
func (t *Tracker) Fraction() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fractionLocked()
}

// Completed returns the completed count and the total
func (t *Tracker) Completed() (completed, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed, t.total
}

// Reset rearms the tracker for a new cycle. Only legal between cycles:
// resetting while units of the current cycle are still outstanding is an
// error.
func (t *Tracker) Reset(total int) error {
	if total < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeTotal, total)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.completed > 0 && t.completed < t.total {
		return fmt.Errorf("%w: %d of %d units done", ErrMidCycleReset, t.completed, t.total)
	}
	t.total = total
	t.completed = 0
	return nil
}

func (t *Tracker) fractionLocked() float64 {
	if t.total == 0 {
		return 1.0
	}
	f := float64(t.completed) / float64(t.total)
	if f > 1.0 {
		f = 1.0
	}
	return f
}
