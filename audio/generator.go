package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
)

const (
	attackDuration  = 5 * time.Millisecond
	releaseDuration = 20 * time.Millisecond
)

// oscillator streams a fixed-length sine tone with an attack/release
// envelope. Mono source widened to both channels.
type oscillator struct {
	freq     float64
	phase    float64
	total    int
	position int
	attack   int
	release  int
}

func newOscillator(freq float64, d time.Duration) *oscillator {
	total := sampleRate.N(d)
	attack := sampleRate.N(attackDuration)
	release := sampleRate.N(releaseDuration)
	if attack+release > total {
		attack = total / 4
		release = total / 4
	}
	return &oscillator{freq: freq, total: total, attack: attack, release: release}
}

func (o *oscillator) Stream(samples [][2]float64) (n int, ok bool) {
	phaseInc := o.freq / float64(sampleRate)
	for i := range samples {
		if o.position >= o.total {
			return i, i > 0
		}

		v := math.Sin(2 * math.Pi * o.phase)

		// Envelope
		switch {
		case o.position < o.attack && o.attack > 0:
			v *= float64(o.position) / float64(o.attack)
		case o.position >= o.total-o.release && o.release > 0:
			v *= float64(o.total-o.position) / float64(o.release)
		}

		samples[i][0] = v
		samples[i][1] = v

		o.phase += phaseInc
		if o.phase >= 1.0 {
			o.phase -= 1.0
		}
		o.position++
		n = i + 1
	}
	return n, true
}

func (o *oscillator) Err() error { return nil }

// renderTone pre-renders one bundle sound into a reusable buffer
func renderTone(freq float64, d time.Duration) *beep.Buffer {
	buf := beep.NewBuffer(format)
	buf.Append(newOscillator(freq, d))
	return buf
}
