package lifecycle

import (
	"sync"

	"github.com/rs/zerolog"
)

// Machine is the session lifecycle state machine. Created once per
// session in PhaseLoadingAssets; transitions only move forward through
// validTransitions and invalid requests are rejected, never applied.
//
// The machine does not drive loading itself: the session coordinator
// invokes the orchestrator and calls MarkLoaded when the container has
// been published.
type Machine struct {
	mu        sync.RWMutex
	phase     Phase
	paused    bool
	loaded    bool // AssetsLoaded reached; fires at most once per machine
	seq       uint64
	callbacks []func(Transition)
	queue     *TransitionQueue
	log       zerolog.Logger
}

// NewMachine creates a machine in PhaseLoadingAssets
func NewMachine(log zerolog.Logger) *Machine {
	return &Machine{
		phase: PhaseLoadingAssets,
		queue: NewTransitionQueue(),
		log:   log,
	}
}

// Phase returns the current phase
func (m *Machine) Phase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// Paused reports the pause toggle. Meaningful only in PhasePlaying.
func (m *Machine) Paused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// Loaded reports whether PhaseAssetsLoaded has been reached
func (m *Machine) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// CanTransition reports whether from -> to is in the transition graph
func (m *Machine) CanTransition(from, to Phase) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionTo requests a phase change. Returns false, leaving all state
// untouched, when the transition is not valid from the current phase.
// Entering AssetsLoaded directly is rejected: that phase is reachable
// only through MarkLoaded.
func (m *Machine) TransitionTo(to Phase) bool {
	if to == PhaseAssetsLoaded {
		return false
	}
	return m.transition(to)
}

// MarkLoaded advances LoadingAssets -> AssetsLoaded. Called exactly once
// by the session coordinator, after the asset container has been
// published. Returns false if loading already completed or the machine
// has moved on.
func (m *Machine) MarkLoaded() bool {
	return m.transition(PhaseAssetsLoaded)
}

func (m *Machine) transition(to Phase) bool {
	m.mu.Lock()
	from := m.phase
	if !m.CanTransition(from, to) {
		m.mu.Unlock()
		m.log.Debug().Stringer("from", from).Stringer("to", to).Msg("transition rejected")
		return false
	}
	if to == PhaseAssetsLoaded {
		if m.loaded {
			m.mu.Unlock()
			return false
		}
		m.loaded = true
	}

	m.phase = to
	m.paused = false
	m.seq++
	tr := Transition{From: from, To: to, Seq: m.seq}
	cbs := m.callbacks

	// Deliver while holding the lock: observers see transitions in
	// order, exactly once, with no interleaving. Callbacks must be quick
	// and must not call back into the machine.
	m.queue.Push(tr)
	for _, cb := range cbs {
		cb(tr)
	}
	m.mu.Unlock()

	m.log.Info().Stringer("from", from).Stringer("to", to).Msg("lifecycle transition")
	return true
}

// SetPaused toggles pause within PhasePlaying. Not a lifecycle
// transition: the phase does not change and no transition event is
// emitted. Returns false outside PhasePlaying.
func (m *Machine) SetPaused(paused bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhasePlaying {
		return false
	}
	m.paused = paused
	return true
}

// Observe registers a callback invoked on every subsequent transition
func (m *Machine) Observe(cb func(Transition)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// Events returns the machine's transition queue for loop-style consumers
// (the render shell drains it once per frame)
func (m *Machine) Events() *TransitionQueue {
	return m.queue
}
