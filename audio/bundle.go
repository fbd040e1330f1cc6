package audio

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/rockfall/asset"
)

// Bundle is the prepared audio asset: an immutable name -> pre-rendered
// sound table bound to the engine's mixer. Fills the container's audio
// slot.
type Bundle struct {
	name   string
	engine *Engine
	sounds map[string]*beep.Buffer
}

func (b *Bundle) PreparedKind() asset.Kind { return asset.KindAudioBundle }

// Name returns the bundle's manifest name
func (b *Bundle) Name() string { return b.name }

// Len returns the number of registered sounds
func (b *Bundle) Len() int { return len(b.sounds) }

// Names returns the registered sound names in sorted order
func (b *Bundle) Names() []string {
	names := make([]string, 0, len(b.sounds))
	for n := range b.sounds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether the bundle carries the named sound
func (b *Bundle) Has(name string) bool {
	_, ok := b.sounds[name]
	return ok
}

// Play queues the named sound on the engine's mixer. Returns false for
// an unknown name or a silent engine; never blocks, never panics.
func (b *Bundle) Play(name string) bool {
	buf, ok := b.sounds[name]
	if !ok {
		return false
	}
	return b.engine.play(buf.Streamer(0, buf.Len()))
}

// Loader implements asset.BundleLoader: the audio bundle's internal
// sub-resource fan-out. Each named sound is rendered on its own
// goroutine; the caller gets back one aggregate prepared asset and the
// top-level progress tracker never sees the individual sub-items.
type Loader struct {
	engine *Engine
	log    zerolog.Logger
}

func NewLoader(engine *Engine, log zerolog.Logger) *Loader {
	return &Loader{engine: engine, log: log}
}

// LoadBundle renders every sound in the manifest concurrently and
// returns the assembled bundle. Any bad sound spec fails the whole
// bundle.
func (l *Loader) LoadBundle(m *asset.BundleManifest) (asset.Prepared, error) {
	if err := validateSpecs(m); err != nil {
		return nil, err
	}

	rendered := make([]*beep.Buffer, len(m.Sounds))
	var wg sync.WaitGroup
	for i, spec := range m.Sounds {
		wg.Add(1)
		go func(i int, spec asset.SoundSpec) {
			defer wg.Done()
			rendered[i] = renderTone(spec.WaveHz, time.Duration(spec.Millis)*time.Millisecond)
		}(i, spec)
	}
	wg.Wait()

	b := &Bundle{
		name:   m.Name,
		engine: l.engine,
		sounds: make(map[string]*beep.Buffer, len(m.Sounds)),
	}
	for i, spec := range m.Sounds {
		b.sounds[spec.Name] = rendered[i]
	}

	l.log.Debug().Str("bundle", m.Name).Int("sounds", b.Len()).Msg("audio bundle loaded")
	return b, nil
}

func validateSpecs(m *asset.BundleManifest) error {
	names := make(map[string]bool, len(m.Sounds))
	for i, spec := range m.Sounds {
		if spec.Name == "" {
			return fmt.Errorf("audio: bundle %q sound %d has no name", m.Name, i)
		}
		if names[spec.Name] {
			return fmt.Errorf("audio: bundle %q has duplicate sound %q", m.Name, spec.Name)
		}
		names[spec.Name] = true
		if spec.WaveHz <= 0 {
			return fmt.Errorf("audio: sound %q has non-positive frequency %g", spec.Name, spec.WaveHz)
		}
		if spec.Millis <= 0 {
			return fmt.Errorf("audio: sound %q has non-positive duration %dms", spec.Name, spec.Millis)
		}
	}
	return nil
}
