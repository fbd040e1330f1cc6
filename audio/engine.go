// Package audio prepares and plays the game's audio bundle. The bundle's
// sub-resources are synthesized and registered here in an internal
// fan-out; the loading core sees the whole bundle as a single asset.
package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// format is the stereo 16-bit stream format shared by all bundle sounds
var format = beep.Format{SampleRate: sampleRate, NumChannels: 2, Precision: 2}

// Engine owns speaker initialization and the shared mixer. Audio is
// optional: every operation degrades to a no-op when the speaker could
// not be initialized (CI, headless machines).
type Engine struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
}

func NewEngine() *Engine {
	return &Engine{mixer: &beep.Mixer{}}
}

// Initialize sets up the speaker. Idempotent; failure leaves the engine
// usable in silent mode.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Millisecond*100)); err != nil {
		return err
	}
	speaker.Play(e.mixer)
	e.initialized = true
	return nil
}

// Cleanup silences the mixer and marks the engine uninitialized.
// beep exposes no speaker close; clearing the mixer is sufficient.
func (e *Engine) Cleanup() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return
	}
	speaker.Lock()
	e.mixer.Clear()
	speaker.Unlock()
	e.initialized = false
}

// Initialized reports whether the speaker is live
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// play adds a streamer to the live mixer, dropping it in silent mode
func (e *Engine) play(s beep.Streamer) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return false
	}
	speaker.Lock()
	e.mixer.Add(s)
	speaker.Unlock()
	return true
}
