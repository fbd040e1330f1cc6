// Package session owns one game session end to end: it invokes the
// loading orchestrator, publishes the asset container exactly once,
// advances the lifecycle machine and hands control to collaborator
// services after the settle delay. It replaces the original client's
// global coordinator object with an explicitly constructed, explicitly
// started owner.
package session

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/rockfall/asset"
	"github.com/lixenwraith/rockfall/lifecycle"
	"github.com/lixenwraith/rockfall/loader"
	"github.com/lixenwraith/rockfall/progress"
)

// ErrAlreadyStarted guards the one-cycle contract on Start
var ErrAlreadyStarted = errors.New("session: already started")

// Session is the root coordinating object for one game session.
// Construct with New, register collaborator services, then Start.
type Session struct {
	id       uuid.UUID
	cfg      Config
	manifest asset.Manifest
	fetcher  asset.Fetcher
	preparer *asset.Preparer
	machine  *lifecycle.Machine
	tracker  *progress.Tracker
	clock    Clock
	hub      *Hub
	log      zerolog.Logger

	container atomic.Pointer[asset.Container]
	started   atomic.Bool
}

// Option configures a Session at construction
type Option func(*Session)

// WithConfig replaces the default session config
func WithConfig(cfg Config) Option {
	return func(s *Session) { s.cfg = cfg }
}

// WithClock replaces the system clock (tests)
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithLogger attaches a structured logger
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// New creates a session over a fixed manifest. obs receives each
// progress fraction; nil is allowed.
func New(fetcher asset.Fetcher, preparer *asset.Preparer, manifest asset.Manifest, obs progress.Observer, opts ...Option) (*Session, error) {
	if fetcher == nil {
		return nil, errors.New("session: nil fetcher")
	}
	if preparer == nil {
		return nil, errors.New("session: nil preparer")
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		id:       uuid.New(),
		cfg:      DefaultConfig(),
		manifest: manifest,
		fetcher:  fetcher,
		preparer: preparer,
		clock:    SystemClock{},
		hub:      NewHub(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("session", s.id.String()).Logger()
	s.machine = lifecycle.NewMachine(s.log)

	tracker, err := progress.New(len(manifest), obs)
	if err != nil {
		return nil, err
	}
	s.tracker = tracker
	return s, nil
}

// ID returns the session's cycle identifier
func (s *Session) ID() uuid.UUID { return s.id }

// Machine exposes the lifecycle machine to collaborators
func (s *Session) Machine() *lifecycle.Machine { return s.machine }

// Services exposes the collaborator hub for registration before Start
func (s *Session) Services() *Hub { return s.hub }

// Progress returns the current loading fraction in [0, 1]
func (s *Session) Progress() float64 { return s.tracker.Fraction() }

// Container returns the published asset snapshot. Calling it before the
// lifecycle reaches AssetsLoaded is a programming error and panics: the
// core guarantees no publication happens before readiness, so a caller
// here has broken the lifecycle contract, not hit a runtime condition.
func (s *Session) Container() *asset.Container {
	if !s.machine.Loaded() {
		panic("session: container read before AssetsLoaded")
	}
	return s.container.Load()
}

// Handle is the awaitable result of Start. The loading cycle runs in the
// background; Wait blocks until the cycle (and, on success, the settle
// handoff) has finished.
type Handle struct {
	done      chan struct{}
	container *asset.Container
	err       error
}

// Done is closed when the cycle has finished, success or not
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks for completion and returns the published container
func (h *Handle) Wait() (*asset.Container, error) {
	<-h.done
	return h.container, h.err
}

// Err returns the cycle error; valid once Done is closed
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return errors.New("session: cycle still running")
	}
}

// Start launches the loading cycle. At most one cycle per session; the
// returned handle makes completion awaitable instead of fire-and-forget.
// Cancelling ctx cancels every outstanding fetch.
func (s *Session) Start(ctx context.Context) (*Handle, error) {
	if !s.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}

	h := &Handle{done: make(chan struct{})}
	orch := loader.New(s.fetcher, s.preparer, s.tracker, s.cfg.loaderConfig())

	go func() {
		defer close(h.done)
		s.log.Info().Int("assets", len(s.manifest)).Stringer("policy", s.cfg.Policy).Msg("loading cycle starting")

		c, err := orch.Run(ctx, s.manifest)
		if err != nil {
			// Known gap carried over from the original client: a fatal
			// loading failure leaves the lifecycle in LoadingAssets
			// forever; only the handle surfaces the error.
			s.log.Error().Err(err).Msg("loading cycle failed")
			h.err = err
			return
		}

		s.publish(c)
		if !s.machine.MarkLoaded() {
			h.err = errors.New("session: lifecycle refused AssetsLoaded")
			return
		}
		h.container = c

		// Settle, then hand control to the collaborators
		select {
		case <-ctx.Done():
			h.err = ctx.Err()
			return
		case <-s.clock.After(s.cfg.SettleDelay):
		}

		if err := s.hub.InitAll(s); err != nil {
			h.err = err
			return
		}
		if err := s.hub.StartAll(); err != nil {
			h.err = err
			return
		}
		s.log.Info().Msg("session handed off to collaborators")
	}()

	return h, nil
}

// Stop brings down collaborator services in reverse start order
func (s *Session) Stop() {
	s.hub.StopAll()
}

// publish installs the container snapshot, write-once. A second publish
// in one session is a programming error.
func (s *Session) publish(c *asset.Container) {
	if !s.container.CompareAndSwap(nil, c) {
		panic("session: asset container published twice")
	}
	s.log.Info().Int("slots", c.Len()).Msg("asset container published")
}
