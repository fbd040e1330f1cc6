// Package loader drives one asset-loading cycle: concurrent fetches over
// a fixed manifest, completion-order draining through the preparer and
// progress tracker, and assembly of the immutable container snapshot.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/rockfall/asset"
	"github.com/lixenwraith/rockfall/progress"
)

const (
	defaultMaxAttempts = 3
	defaultRetryBase   = 50 * time.Millisecond
)

// ErrAlreadyRan guards the one-cycle contract: an Orchestrator drives at
// most one loading cycle
var ErrAlreadyRan = errors.New("loader: orchestrator already ran")

// Config tunes one loading cycle
type Config struct {
	Policy      Policy
	MaxAttempts int           // RetryWithBackoff attempt cap, 0 = 3
	RetryBase   time.Duration // backoff base delay, 0 = 50ms

	// PerAssetTimeout bounds each individual fetch. Zero disables it,
	// matching the shipped client.
	PerAssetTimeout time.Duration

	Log zerolog.Logger
}

func (c Config) maxAttempts() int {
	if c.MaxAttempts <= 0 {
		return defaultMaxAttempts
	}
	return c.MaxAttempts
}

func (c Config) retryBase() time.Duration {
	if c.RetryBase <= 0 {
		return defaultRetryBase
	}
	return c.RetryBase
}

// Orchestrator owns one loading cycle. Fetches run concurrently, one
// goroutine per descriptor; completions are drained in arrival order on a
// single loop that serializes all preparation, container mutation and
// progress advancement. No lock is held across a suspension point.
type Orchestrator struct {
	fetcher  asset.Fetcher
	preparer *asset.Preparer
	tracker  *progress.Tracker
	cfg      Config

	ran atomic.Bool
}

// New creates an orchestrator for one cycle
func New(f asset.Fetcher, p *asset.Preparer, t *progress.Tracker, cfg Config) *Orchestrator {
	return &Orchestrator{fetcher: f, preparer: p, tracker: t, cfg: cfg}
}

// Run executes the loading cycle and returns the sealed container.
// It does not return while any child fetch is outstanding; cancelling ctx
// cancels every outstanding fetch. On a fatal failure no container is
// returned and the first error surfaces, wrapped as *asset.FetchError or
// *asset.PrepareError.
func (o *Orchestrator) Run(ctx context.Context, manifest asset.Manifest) (*asset.Container, error) {
	if !o.ran.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRan
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	if err := o.tracker.Reset(len(manifest)); err != nil {
		return nil, err
	}

	log := o.cfg.Log.With().Int("manifest", len(manifest)).Logger()

	// Degenerate cycle: complete immediately at 100%
	if len(manifest) == 0 {
		if err := o.tracker.FinishEmpty(); err != nil {
			return nil, err
		}
		log.Info().Msg("empty manifest, loading complete")
		return asset.NewBuilder().Seal(), nil
	}

	// One fetch goroutine per descriptor, all started together. The
	// channel holds one slot per descriptor so a fetch can always hand
	// off its outcome and exit, even after the group context is
	// cancelled.
	results := make(chan asset.Outcome, len(manifest))
	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()

	for _, d := range manifest {
		g.Go(func() error {
			h, err := o.fetchOne(gctx, d)
			results <- asset.Outcome{Descriptor: d, Handle: h, Err: err}
			if err != nil && o.cfg.Policy != SkipAndContinue {
				// Fatal under FailFast / exhausted retries: cancel the
				// cycle so sibling fetches stop early
				return &asset.FetchError{Descriptor: d, Cause: err}
			}
			return nil
		})
	}

	// Drain in completion order, not manifest order. This loop is the
	// single writer for the builder and the tracker.
	builder := asset.NewBuilder()
	var firstErr error
	for range manifest {
		out := <-results
		o.drainOne(&log, builder, out, &firstErr)
		o.tracker.Advance()
	}

	// Structured concurrency: every child has sent its outcome, but wait
	// for the group so no goroutine outlives Run
	if err := g.Wait(); err != nil && firstErr == nil {
		firstErr = err
	}

	if firstErr != nil {
		log.Error().Err(firstErr).Dur("elapsed", time.Since(start)).Msg("loading cycle aborted")
		return nil, firstErr
	}

	c := builder.Seal()
	log.Info().Dur("elapsed", time.Since(start)).Int("slots", c.Len()).Msg("loading cycle complete")
	return c, nil
}

// drainOne prepares a single completion and places it into the builder,
// applying the failure policy. Runs only on the drain loop.
func (o *Orchestrator) drainOne(log *zerolog.Logger, builder *asset.Builder, out asset.Outcome, firstErr *error) {
	d := out.Descriptor

	if out.Err != nil {
		log.Warn().Stringer("asset", d).Err(out.Err).Msg("fetch failed")
		if o.cfg.Policy == SkipAndContinue {
			o.insert(builder, d, asset.PlaceholderFor(d), firstErr)
		} else if *firstErr == nil {
			*firstErr = &asset.FetchError{Descriptor: d, Cause: out.Err}
		}
		return
	}

	prep, err := o.preparer.Prepare(d, out.Handle)
	if err != nil {
		log.Warn().Stringer("asset", d).Err(err).Msg("prepare failed")
		if o.cfg.Policy == SkipAndContinue {
			o.insert(builder, d, asset.PlaceholderFor(d), firstErr)
		} else if *firstErr == nil {
			*firstErr = err
		}
		return
	}

	o.insert(builder, d, prep, firstErr)
}

func (o *Orchestrator) insert(builder *asset.Builder, d asset.Descriptor, p asset.Prepared, firstErr *error) {
	if err := builder.Insert(d, p); err != nil && *firstErr == nil {
		*firstErr = err
	}
}

// fetchOne runs a single fetch, applying the per-asset timeout and, under
// RetryWithBackoff, the retry schedule. A cancelled parent context ends
// the attempt loop immediately.
func (o *Orchestrator) fetchOne(ctx context.Context, d asset.Descriptor) (asset.Handle, error) {
	attempts := 1
	if o.cfg.Policy == RetryWithBackoff {
		attempts = o.cfg.maxAttempts()
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			delay := o.cfg.retryBase() << (i - 1)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			o.cfg.Log.Debug().Stringer("asset", d).Int("attempt", i+1).Msg("retrying fetch")
		}

		fctx := ctx
		cancel := func() {}
		if o.cfg.PerAssetTimeout > 0 {
			fctx, cancel = context.WithTimeout(ctx, o.cfg.PerAssetTimeout)
		}
		h, err := o.fetcher.Fetch(fctx, d)
		cancel()

		if err == nil {
			if h == nil {
				return nil, fmt.Errorf("fetcher returned nil handle for %s", d)
			}
			return h, nil
		}
		lastErr = err

		// Cancellation is a failure that never retries
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}
