package loader

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lixenwraith/rockfall/asset"
	"github.com/lixenwraith/rockfall/progress"
)

// stubFetcher simulates the external fetch collaborator with per-asset
// latency and scripted failures
type stubFetcher struct {
	mu        sync.Mutex
	latency   func(d asset.Descriptor) time.Duration
	failures  map[string]error // by descriptor name, permanent
	flaky     map[string]int   // by descriptor name, fail first n calls
	calls     map[string]int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		failures: make(map[string]error),
		flaky:    make(map[string]int),
		calls:    make(map[string]int),
	}
}

func (s *stubFetcher) Fetch(ctx context.Context, d asset.Descriptor) (asset.Handle, error) {
	s.mu.Lock()
	s.calls[d.Name]++
	call := s.calls[d.Name]
	failErr := s.failures[d.Name]
	flakyUntil := s.flaky[d.Name]
	var delay time.Duration
	if s.latency != nil {
		delay = s.latency(d)
	}
	s.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failErr != nil {
		return nil, failErr
	}
	if call <= flakyUntil {
		return nil, fmt.Errorf("transient failure %d for %s", call, d.Name)
	}
	return handleFor(d), nil
}

func (s *stubFetcher) callCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func handleFor(d asset.Descriptor) asset.Handle {
	switch d.Kind {
	case asset.KindLevel:
		return &asset.LevelData{
			ID:          d.LevelID,
			DisplayName: d.Name,
			Width:       320,
			Height:      180,
			Spawn:       asset.Point{X: 10, Y: 10},
		}
	case asset.KindCharacter:
		return &asset.CharacterData{
			Name:   d.Name,
			Joints: []asset.Joint{{Name: "pelvis"}, {Name: "spine", Parent: "pelvis"}},
			Clips:  []string{"idle"},
		}
	case asset.KindInputVisualizer:
		return &asset.VisualizerData{Name: d.Name, Glyphs: []asset.GlyphSpec{{Gesture: "tap", Symbol: "*"}}}
	case asset.KindAudioBundle:
		return &asset.BundleManifest{
			Name: d.Name,
			Sounds: []asset.SoundSpec{
				{Name: "rock_hit", WaveHz: 220, Millis: 40},
				{Name: "portal_open", WaveHz: 440, Millis: 60},
				{Name: "menu_tick", WaveHz: 880, Millis: 20},
			},
		}
	}
	panic("unhandled kind in stub: " + d.Kind.String())
}

// countingBundleLoader records how many sub-resources it fanned out over
type countingBundleLoader struct {
	mu       sync.Mutex
	subItems int
}

func (c *countingBundleLoader) LoadBundle(m *asset.BundleManifest) (asset.Prepared, error) {
	c.mu.Lock()
	c.subItems += len(m.Sounds)
	c.mu.Unlock()
	return &asset.SilentBundle{Name: m.Name}, nil
}

// recordingObserver captures the fraction sequence the UI would see
type recordingObserver struct {
	mu   sync.Mutex
	seen []float64
}

func (r *recordingObserver) observe(f float64) {
	r.mu.Lock()
	r.seen = append(r.seen, f)
	r.mu.Unlock()
}

func (r *recordingObserver) fractions() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, len(r.seen))
	copy(out, r.seen)
	return out
}

func newTestRig(t *testing.T, total int, cfg Config) (*stubFetcher, *recordingObserver, func(asset.Fetcher) *Orchestrator) {
	t.Helper()
	obs := &recordingObserver{}
	tracker, err := progress.New(total, obs.observe)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Log = zerolog.Nop()
	preparer := &asset.Preparer{Bundles: &countingBundleLoader{}, Log: zerolog.Nop()}
	fetcher := newStubFetcher()
	return fetcher, obs, func(f asset.Fetcher) *Orchestrator {
		if f == nil {
			f = fetcher
		}
		return New(f, preparer, tracker, cfg)
	}
}

func TestRunAllSuccess(t *testing.T) {
	manifest := asset.DefaultManifest()
	fetcher, obs, mk := newTestRig(t, len(manifest), Config{})
	fetcher.latency = func(asset.Descriptor) time.Duration {
		return time.Duration(1+rand.Intn(49)) * time.Millisecond
	}

	c, err := mk(nil).Run(context.Background(), manifest)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, id := range []string{"Main", "Tutorial"} {
		if _, ok := c.Level(id); !ok {
			t.Errorf("level %q missing from container", id)
		}
	}
	if c.CharacterRoot() == nil {
		t.Error("character root missing")
	}
	if c.Visualizer() == nil {
		t.Error("visualizer missing")
	}
	if c.AudioBundle() == nil {
		t.Error("audio bundle missing")
	}

	seen := obs.fractions()
	if len(seen) != len(manifest) {
		t.Fatalf("observer saw %d updates, expected %d: %v", len(seen), len(manifest), seen)
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Fatalf("fraction decreased at update %d: %v", i, seen)
		}
	}
	if seen[len(seen)-1] != 1.0 {
		t.Errorf("final fraction %g, expected 1.0", seen[len(seen)-1])
	}
}

// Random completion orders must always converge on the same container
// contents and a final fraction of 1.0
func TestRunOrderIndependence(t *testing.T) {
	manifest := asset.DefaultManifest()
	for i := 0; i < 20; i++ {
		fetcher, obs, mk := newTestRig(t, len(manifest), Config{})
		fetcher.latency = func(asset.Descriptor) time.Duration {
			return time.Duration(rand.Intn(8)) * time.Millisecond
		}

		c, err := mk(nil).Run(context.Background(), manifest)
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if got := c.LevelIDs(); len(got) != 2 || got[0] != "Main" || got[1] != "Tutorial" {
			t.Fatalf("iteration %d: levels %v", i, got)
		}
		if c.Len() != 5 {
			t.Fatalf("iteration %d: %d slots", i, c.Len())
		}
		seen := obs.fractions()
		if seen[len(seen)-1] != 1.0 {
			t.Fatalf("iteration %d: final fraction %g", i, seen[len(seen)-1])
		}
	}
}

func TestRunFailFast(t *testing.T) {
	manifest := asset.DefaultManifest()
	fetcher, _, mk := newTestRig(t, len(manifest), Config{Policy: FailFast})
	cause := errors.New("entity not found")
	fetcher.failures["Rock"] = cause

	c, err := mk(nil).Run(context.Background(), manifest)
	if c != nil {
		t.Fatal("container returned despite fatal failure")
	}
	var ferr *asset.FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if ferr.Descriptor.Name != "Rock" {
		t.Errorf("error names %q, expected failing descriptor Rock", ferr.Descriptor.Name)
	}
	if !errors.Is(err, cause) {
		t.Errorf("cause not wrapped: %v", err)
	}
}

func TestRunSkipAndContinue(t *testing.T) {
	manifest := asset.DefaultManifest()
	fetcher, obs, mk := newTestRig(t, len(manifest), Config{Policy: SkipAndContinue})
	fetcher.failures["Tutorial"] = errors.New("corrupt level")

	c, err := mk(nil).Run(context.Background(), manifest)
	if err != nil {
		t.Fatalf("run failed under skip policy: %v", err)
	}
	lvl, ok := c.Level("Tutorial")
	if !ok {
		t.Fatal("placeholder slot missing")
	}
	if !lvl.Placeholder {
		t.Error("failed level not marked as placeholder")
	}
	if main, _ := c.Level("Main"); main == nil || main.Placeholder {
		t.Error("healthy level degraded to placeholder")
	}

	seen := obs.fractions()
	if seen[len(seen)-1] != 1.0 {
		t.Errorf("final fraction %g, expected 1.0", seen[len(seen)-1])
	}
}

func TestRunRetryWithBackoff(t *testing.T) {
	manifest := asset.Manifest{{Name: "Main", Kind: asset.KindLevel, LevelID: "Main"}}
	fetcher, _, mk := newTestRig(t, 1, Config{
		Policy:      RetryWithBackoff,
		MaxAttempts: 3,
		RetryBase:   time.Millisecond,
	})
	fetcher.flaky["Main"] = 2 // first two attempts fail

	c, err := mk(nil).Run(context.Background(), manifest)
	if err != nil {
		t.Fatalf("run failed despite retries: %v", err)
	}
	if _, ok := c.Level("Main"); !ok {
		t.Error("level missing after successful retry")
	}
	if n := fetcher.callCount("Main"); n != 3 {
		t.Errorf("fetch called %d times, expected 3", n)
	}
}

func TestRunRetryExhaustionIsFatal(t *testing.T) {
	manifest := asset.Manifest{{Name: "Main", Kind: asset.KindLevel, LevelID: "Main"}}
	fetcher, _, mk := newTestRig(t, 1, Config{
		Policy:      RetryWithBackoff,
		MaxAttempts: 2,
		RetryBase:   time.Millisecond,
	})
	fetcher.failures["Main"] = errors.New("gone")

	if _, err := mk(nil).Run(context.Background(), manifest); err == nil {
		t.Fatal("exhausted retries did not surface an error")
	}
	if n := fetcher.callCount("Main"); n != 2 {
		t.Errorf("fetch called %d times, expected 2", n)
	}
}

func TestRunEmptyManifest(t *testing.T) {
	_, obs, mk := newTestRig(t, 0, Config{})

	c, err := mk(nil).Run(context.Background(), asset.Manifest{})
	if err != nil {
		t.Fatalf("empty cycle failed: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty container, got %d slots", c.Len())
	}
	seen := obs.fractions()
	if len(seen) != 1 || seen[0] != 1.0 {
		t.Errorf("observer updates %v, expected single 1.0", seen)
	}
}

func TestRunCancellation(t *testing.T) {
	manifest := asset.DefaultManifest()
	fetcher, _, mk := newTestRig(t, len(manifest), Config{})
	fetcher.latency = func(asset.Descriptor) time.Duration { return time.Second }

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	start := time.Now()
	_, err := mk(nil).Run(ctx, manifest)
	if err == nil {
		t.Fatal("cancelled run returned no error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
	// All five one-second fetches must have been cancelled, not awaited
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("run took %v, children were not cancelled", elapsed)
	}
}

func TestRunPerAssetTimeout(t *testing.T) {
	manifest := asset.Manifest{{Name: "Main", Kind: asset.KindLevel, LevelID: "Main"}}
	fetcher, _, mk := newTestRig(t, 1, Config{PerAssetTimeout: 5 * time.Millisecond})
	fetcher.latency = func(asset.Descriptor) time.Duration { return time.Second }

	_, err := mk(nil).Run(context.Background(), manifest)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestRunOnlyOnce(t *testing.T) {
	manifest := asset.Manifest{{Name: "Main", Kind: asset.KindLevel, LevelID: "Main"}}
	_, _, mk := newTestRig(t, 1, Config{})
	o := mk(nil)

	if _, err := o.Run(context.Background(), manifest); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if _, err := o.Run(context.Background(), manifest); !errors.Is(err, ErrAlreadyRan) {
		t.Fatalf("second run: expected ErrAlreadyRan, got %v", err)
	}
}

// An audio bundle with K internal sub-resources advances top-level
// progress by exactly one unit
func TestAudioBundleIsOneProgressUnit(t *testing.T) {
	manifest := asset.Manifest{{Name: "Audio", Kind: asset.KindAudioBundle}}
	obs := &recordingObserver{}
	tracker, _ := progress.New(1, obs.observe)
	bundles := &countingBundleLoader{}
	preparer := &asset.Preparer{Bundles: bundles, Log: zerolog.Nop()}
	o := New(newStubFetcher(), preparer, tracker, Config{Log: zerolog.Nop()})

	c, err := o.Run(context.Background(), manifest)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if c.AudioBundle() == nil {
		t.Fatal("bundle missing from container")
	}
	if bundles.subItems != 3 {
		t.Fatalf("bundle fan-out saw %d sub-items, expected 3", bundles.subItems)
	}
	seen := obs.fractions()
	if len(seen) != 1 || seen[0] != 1.0 {
		t.Errorf("observer updates %v, expected exactly one unit for the bundle", seen)
	}
}
