package session

import (
	"sync"
	"time"
)

// Clock abstracts time for the settle delay between AssetsLoaded and the
// menu handoff, so tests never sleep on the wall clock
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the real monotonic clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// MockClock is a controllable time source for tests. After timers fire
// only when Advance moves the clock past their deadline.
type MockClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []mockTimer
}

type mockTimer struct {
	at time.Time
	ch chan time.Time
}

func NewMockClock(start time.Time) *MockClock {
	return &MockClock{now: start}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *MockClock) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan time.Time, 1)
	at := m.now.Add(d)
	if d <= 0 {
		ch <- m.now
		return ch
	}
	m.timers = append(m.timers, mockTimer{at: at, ch: ch})
	return ch
}

// Waiters returns the number of pending After timers. Tests use it to
// know the session has reached its settle wait before advancing.
func (m *MockClock) Waiters() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Advance moves the clock forward and fires every timer now due
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = m.now.Add(d)
	remaining := m.timers[:0]
	for _, t := range m.timers {
		if !t.at.After(m.now) {
			t.ch <- m.now
		} else {
			remaining = append(remaining, t)
		}
	}
	m.timers = remaining
}
