// Command rockfall is the terminal shell around the loading core: it
// renders the progress bar while assets load, then walks the session
// lifecycle from the menu through play and back.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/rockfall/asset"
	"github.com/lixenwraith/rockfall/audio"
	"github.com/lixenwraith/rockfall/content"
	"github.com/lixenwraith/rockfall/lifecycle"
	"github.com/lixenwraith/rockfall/session"
)

const (
	frameMs     = 33
	barWidth    = 40
	flashHoldMs = 900
)

// Shell owns the terminal surface and drives the lifecycle from input
type Shell struct {
	screen        tcell.Screen
	width, height int

	sess   *session.Session
	handle *session.Handle
	engine *audio.Engine
	meter  *progressMeter
	log    zerolog.Logger

	flash      string
	flashUntil time.Time
}

// progressMeter bridges the loading core's observer callback, which
// fires on fetch goroutines, to the draw loop
type progressMeter struct {
	mu       sync.Mutex
	fraction float64
}

func (p *progressMeter) observe(fraction float64) {
	p.mu.Lock()
	p.fraction = fraction
	p.mu.Unlock()
}

func (p *progressMeter) current() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fraction
}

func NewShell(sess *session.Session, engine *audio.Engine, meter *progressMeter, log zerolog.Logger) (*Shell, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}

	s := &Shell{
		screen: screen,
		sess:   sess,
		engine: engine,
		meter:  meter,
		log:    log,
	}
	s.width, s.height = screen.Size()
	return s, nil
}

// sound plays a bundle cue if the container has been published
func (s *Shell) sound(name string) {
	if !s.sess.Machine().Loaded() {
		return
	}
	if b, ok := s.sess.Container().AudioBundle().(*audio.Bundle); ok {
		b.Play(name)
	}
}

// drainTransitions consumes queued lifecycle events once per frame
func (s *Shell) drainTransitions() {
	for _, tr := range s.sess.Machine().Events().Consume() {
		s.log.Debug().Stringer("from", tr.From).Stringer("to", tr.To).Msg("shell observed transition")

		switch tr.To {
		case lifecycle.PhaseAssetsLoaded:
			s.setFlash("Assets ready")
		case lifecycle.PhasePlaying:
			s.sound("portal")
		case lifecycle.PhasePostGame:
			s.sound("gameover")
		}
	}
}

func (s *Shell) setFlash(msg string) {
	s.flash = msg
	s.flashUntil = time.Now().Add(flashHoldMs * time.Millisecond)
}

// advance moves the lifecycle one step forward from the current phase.
// Bound to Enter; rejected requests are a red flash, not a crash.
func (s *Shell) advance() {
	m := s.sess.Machine()
	var next lifecycle.Phase
	switch m.Phase() {
	case lifecycle.PhaseAssetsLoaded:
		next = lifecycle.PhaseIntroAnimation
	case lifecycle.PhaseIntroAnimation:
		next = lifecycle.PhaseStarting
	case lifecycle.PhaseStarting:
		next = lifecycle.PhasePlaying
	case lifecycle.PhasePlaying:
		next = lifecycle.PhaseOutroAnimation
	case lifecycle.PhaseOutroAnimation:
		next = lifecycle.PhasePostGame
	case lifecycle.PhasePostGame:
		// Play again
		next = lifecycle.PhaseStarting
	default:
		s.setFlash("Still loading")
		return
	}
	if !m.TransitionTo(next) {
		s.setFlash("Not yet")
	}
}

func (s *Shell) togglePause() {
	m := s.sess.Machine()
	if m.SetPaused(!m.Paused()) {
		s.sound("pause")
	}
}

func (s *Shell) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
			return false
		case ev.Key() == tcell.KeyEnter:
			s.advance()
		case ev.Key() == tcell.KeyRune && ev.Rune() == 'p':
			s.togglePause()
		case ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
			return false
		}

	case *tcell.EventResize:
		s.width, s.height = s.screen.Size()
	}
	return true
}

func (s *Shell) draw() {
	s.screen.Clear()

	m := s.sess.Machine()
	phase := m.Phase()
	cx := s.width / 2
	cy := s.height / 2

	s.drawText(cx-4, 1, "ROCKFALL", tcell.StyleDefault.Bold(true))

	switch phase {
	case lifecycle.PhaseLoadingAssets:
		s.drawProgressBar(cy)
		select {
		case <-s.handle.Done():
			if err := s.handle.Err(); err != nil {
				s.drawText(cx-len(err.Error())/2, cy+2, err.Error(),
					tcell.StyleDefault.Foreground(tcell.ColorRed))
			}
		default:
		}
	case lifecycle.PhasePlaying:
		s.drawPlayfield()
		if m.Paused() {
			s.drawText(cx-3, cy, "PAUSED", tcell.StyleDefault.Reverse(true))
		}
	default:
		s.drawText(cx-len(phase.String())/2, cy, phase.String(), tcell.StyleDefault)
		s.drawText(cx-12, cy+2, "Enter: continue  q: quit", tcell.StyleDefault.Dim(true))
	}

	if s.flash != "" && time.Now().Before(s.flashUntil) {
		s.drawText(cx-len(s.flash)/2, s.height-2, s.flash,
			tcell.StyleDefault.Foreground(tcell.ColorYellow))
	}

	s.screen.Show()
}

func (s *Shell) drawProgressBar(y int) {
	fraction := s.meter.current()
	filled := int(fraction * barWidth)
	x := (s.width - barWidth) / 2

	for i := 0; i < barWidth; i++ {
		ch := '░'
		if i < filled {
			ch = '█'
		}
		s.screen.SetContent(x+i, y, ch, nil, tcell.StyleDefault.Foreground(tcell.ColorGreen))
	}
	label := fmt.Sprintf("%3.0f%%", fraction*100)
	s.drawText(x+barWidth+2, y, label, tcell.StyleDefault)
}

// drawPlayfield sketches the active level's colliders to scale
func (s *Shell) drawPlayfield() {
	c := s.sess.Container()
	ids := c.LevelIDs()
	if len(ids) == 0 {
		return
	}
	lvl, _ := c.Level(ids[0])
	if lvl == nil || lvl.Bounds.W <= 0 || lvl.Bounds.H <= 0 {
		return
	}

	sx := float64(s.width) / lvl.Bounds.W
	sy := float64(s.height-2) / lvl.Bounds.H
	for _, p := range lvl.Colliders {
		y := 1 + int(p.Y*sy)
		for i := 0; i < int(p.W*sx); i++ {
			s.screen.SetContent(int(p.X*sx)+i, y, '▔', nil,
				tcell.StyleDefault.Foreground(tcell.ColorGray))
		}
	}
	s.drawText(1, s.height-1, lvl.Name, tcell.StyleDefault.Dim(true))
}

func (s *Shell) drawText(x, y int, text string, style tcell.Style) {
	for i, r := range text {
		s.screen.SetContent(x+i, y, r, nil, style)
	}
}

func (s *Shell) run() {
	ticker := time.NewTicker(frameMs * time.Millisecond)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 64)
	go func() {
		for {
			ev := s.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !s.handleInput(ev) {
				return
			}
		case <-ticker.C:
			s.drainTransitions()
			s.draw()
		}
	}
}

func (s *Shell) cleanup() {
	s.sess.Stop()
	s.engine.Cleanup()
	s.screen.Fini()
}

// readyService plays an audible cue once the session hands control over.
// Registered on the hub so the cue cannot fire before the settle delay.
type readyService struct {
	bundle *audio.Bundle
}

func (r *readyService) Name() string { return "ready-cue" }

func (r *readyService) Dependencies() []string { return nil }

func (r *readyService) Init(s *session.Session) error {
	if b, ok := s.Container().AudioBundle().(*audio.Bundle); ok {
		r.bundle = b
	}
	return nil
}

func (r *readyService) Start() error {
	if r.bundle != nil {
		r.bundle.Play("land")
	}
	return nil
}

func (r *readyService) Stop() error { return nil }

func loadConfig(path string) (session.Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return session.DefaultConfig(), nil
	}
	if err != nil {
		return session.Config{}, err
	}
	defer f.Close()
	return session.ParseConfig(f)
}

func main() {
	configPath := flag.String("config", "rockfall.yaml", "session config file")
	logPath := flag.String("log", "rockfall.log", "log file")
	flag.Parse()

	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	log := zerolog.New(logFile).With().Timestamp().Logger()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	engine := audio.NewEngine()
	if err := engine.Initialize(); err != nil {
		// Non-fatal, the game runs silent
		log.Warn().Err(err).Msg("audio unavailable, running silent")
	}

	preparer := &asset.Preparer{
		Bundles: audio.NewLoader(engine, log),
		Log:     log,
	}
	fetcher := content.NewFetcher(log)

	meter := &progressMeter{}
	sess, err := session.New(fetcher, preparer, asset.DefaultManifest(), meter.observe,
		session.WithConfig(cfg), session.WithLogger(log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "create session: %v\n", err)
		os.Exit(1)
	}
	if err := sess.Services().Register(&readyService{}); err != nil {
		fmt.Fprintf(os.Stderr, "register service: %v\n", err)
		os.Exit(1)
	}

	shell, err := NewShell(sess, engine, meter, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init terminal: %v\n", err)
		os.Exit(1)
	}
	defer shell.cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handle, err := sess.Start(ctx)
	if err != nil {
		shell.cleanup()
		fmt.Fprintf(os.Stderr, "start session: %v\n", err)
		os.Exit(1)
	}
	shell.handle = handle

	shell.run()
}
