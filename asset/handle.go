package asset

// Handle is a loaded-but-unprepared resource produced by a Fetcher.
// The set of concrete handle types is closed and mirrors the Kind set;
// the Preparer rejects a handle whose kind does not match its descriptor.
type Handle interface {
	HandleKind() Kind
}

// Point is a position in level space
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Platform is an axis-aligned solid in level space
type Platform struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// LevelData is the raw decoded form of a level asset
type LevelData struct {
	ID          string     `yaml:"id"`
	DisplayName string     `yaml:"display_name"`
	Width       float64    `yaml:"width"`
	Height      float64    `yaml:"height"`
	Spawn       Point      `yaml:"spawn"`
	Platforms   []Platform `yaml:"platforms"`
	PortalID    string     `yaml:"portal_id"`
}

func (*LevelData) HandleKind() Kind { return KindLevel }

// Joint is one node of a character skeleton
type Joint struct {
	Name   string `yaml:"name"`
	Parent string `yaml:"parent"` // empty for the root joint
}

// CharacterData is the raw decoded form of a character asset
type CharacterData struct {
	Name   string   `yaml:"name"`
	Joints []Joint  `yaml:"joints"`
	Clips  []string `yaml:"clips"`
}

func (*CharacterData) HandleKind() Kind { return KindCharacter }

// GlyphSpec maps a gesture name to its on-screen symbol
type GlyphSpec struct {
	Gesture string `yaml:"gesture"`
	Symbol  string `yaml:"symbol"`
}

// VisualizerData is the raw decoded form of the input visualizer asset
type VisualizerData struct {
	Name   string      `yaml:"name"`
	Glyphs []GlyphSpec `yaml:"glyphs"`
}

func (*VisualizerData) HandleKind() Kind { return KindInputVisualizer }

// SoundSpec names one sub-resource of an audio bundle
type SoundSpec struct {
	Name   string  `yaml:"name"`
	WaveHz float64 `yaml:"wave_hz"`
	Millis int     `yaml:"millis"`
}

// BundleManifest is the raw decoded form of an audio bundle asset.
// The bundle's sub-resources are loaded by the audio collaborator in its
// own internal fan-out; the loading core sees the bundle as one unit.
type BundleManifest struct {
	Name   string      `yaml:"name"`
	Sounds []SoundSpec `yaml:"sounds"`
}

func (*BundleManifest) HandleKind() Kind { return KindAudioBundle }
