package lifecycle

import "sync/atomic"

const (
	// queueSize must stay a power of two for the index mask
	queueSize = 64
	queueMask = queueSize - 1
)

// TransitionQueue is a lock-free MPSC ring buffer of lifecycle
// transitions
// Thread-Safety:
//   - Push: Lock-free CAS, multiple producers OK
//   - Consume: Single consumer (the shell's frame loop)
//   - Published flags prevent reading partial writes
//
// Overflow: Oldest transitions overwritten when full. The lifecycle
// emits events far below queueSize per frame, so overflow means the
// consumer stalled.
type TransitionQueue struct {
	events    [queueSize]Transition
	published [queueSize]atomic.Bool // True = slot fully written
	head      atomic.Uint64          // Read index
	tail      atomic.Uint64          // Write index
}

func NewTransitionQueue() *TransitionQueue {
	return &TransitionQueue{}
}

// Push adds a transition using lock-free CAS with published flags.
// Safe for concurrent producers. O(1) amortized.
func (q *TransitionQueue) Push(tr Transition) {
	for {
		currentTail := q.tail.Load()
		nextTail := currentTail + 1

		if q.tail.CompareAndSwap(currentTail, nextTail) {
			idx := currentTail & queueMask

			q.events[idx] = tr
			q.published[idx].Store(true) // MUST be after write

			// Advance head if overwriting unread transitions
			currentHead := q.head.Load()
			if nextTail-currentHead > queueSize {
				q.head.CompareAndSwap(currentHead, nextTail-queueSize)
			}
			return
		}
	}
}

// Consume returns all pending transitions in FIFO order and advances the
// head. Single-consumer design; checks published flags for safety.
func (q *TransitionQueue) Consume() []Transition {
	for {
		currentHead := q.head.Load()
		currentTail := q.tail.Load()

		if currentTail == currentHead {
			return nil
		}

		maxAvailable := currentTail - currentHead
		if maxAvailable > queueSize {
			maxAvailable = queueSize
			currentHead = currentTail - queueSize
		}

		result := make([]Transition, 0, maxAvailable)
		for i := uint64(0); i < maxAvailable; i++ {
			idx := (currentHead + i) & queueMask

			if !q.published[idx].Load() {
				break // Writer incomplete
			}

			result = append(result, q.events[idx])
			q.published[idx].Store(false)
		}

		newHead := currentHead + uint64(len(result))
		if q.head.CompareAndSwap(currentHead, newHead) {
			if len(result) == 0 {
				return nil
			}
			return result
		}
	}
}

// Len returns the approximate pending transition count
func (q *TransitionQueue) Len() int {
	head := q.head.Load()
	tail := q.tail.Load()
	if tail <= head {
		return 0
	}
	diff := int(tail - head)
	if diff > queueSize {
		return queueSize
	}
	return diff
}
