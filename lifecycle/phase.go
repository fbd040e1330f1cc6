// Package lifecycle gates the game session's forward progression from
// asset loading through play. Downstream subsystems observe transitions
// to decide what to enable; nothing observes the loaded-asset snapshot
// before the machine reaches PhaseAssetsLoaded.
package lifecycle

import "fmt"

// Phase is one state of the session lifecycle
type Phase int

const (
	PhaseLoadingAssets Phase = iota
	PhaseAssetsLoaded
	PhaseIntroAnimation
	PhaseStarting
	PhasePlaying
	PhaseOutroAnimation
	PhasePostGame
	phaseCount
)

var phaseNames = [phaseCount]string{
	PhaseLoadingAssets:  "LoadingAssets",
	PhaseAssetsLoaded:   "AssetsLoaded",
	PhaseIntroAnimation: "IntroAnimation",
	PhaseStarting:       "Starting",
	PhasePlaying:        "Playing",
	PhaseOutroAnimation: "OutroAnimation",
	PhasePostGame:       "PostGame",
}

func (p Phase) String() string {
	if p < 0 || p >= phaseCount {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// validTransitions is the complete forward graph. Linear progression with
// a single loop: PostGame -> Starting is the play-again path.
var validTransitions = map[Phase][]Phase{
	PhaseLoadingAssets:  {PhaseAssetsLoaded},
	PhaseAssetsLoaded:   {PhaseIntroAnimation},
	PhaseIntroAnimation: {PhaseStarting},
	PhaseStarting:       {PhasePlaying},
	PhasePlaying:        {PhaseOutroAnimation},
	PhaseOutroAnimation: {PhasePostGame},
	PhasePostGame:       {PhaseStarting},
}

// Transition is one observed phase change
type Transition struct {
	From Phase
	To   Phase
	Seq  uint64 // monotonic per machine
}
