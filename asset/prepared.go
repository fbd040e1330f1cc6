package asset

// Prepared is a fully prepared asset, ready to be placed into the
// Container. Concrete types: *Level, *CharacterRig, *Visualizer, and the
// audio collaborator's bundle type (*SilentBundle stands in when audio is
// skipped or degraded).
type Prepared interface {
	PreparedKind() Kind
}

// Level is a prepared level: decoded geometry with spawn and collision
// wiring applied
type Level struct {
	ID       string
	Name     string
	Bounds   Platform
	Spawn    Point
	PortalID string

	// Colliders is populated by the physics collaborator when one is
	// bound; otherwise it mirrors the raw platform list
	Colliders []Platform

	// Placeholder marks a level slot filled under SkipAndContinue
	Placeholder bool
}

func (*Level) PreparedKind() Kind { return KindLevel }

// SpawnPosition returns the player spawn, defaulting to the level center
// when the authored spawn is unset
func (l *Level) SpawnPosition() Point {
	if l.Spawn == (Point{}) && l.Bounds.W > 0 {
		return Point{X: l.Bounds.W / 2, Y: l.Bounds.H / 2}
	}
	return l.Spawn
}

// CharacterRig is a prepared character: skeleton with a resolved animation
// root and a clip lookup table
type CharacterRig struct {
	Name  string
	Root  string            // name of the root joint
	Bones map[string]string // joint name -> parent name
	Clips map[string]bool

	Placeholder bool
}

func (*CharacterRig) PreparedKind() Kind { return KindCharacter }

// HasClip reports whether the rig carries the named animation clip
func (r *CharacterRig) HasClip(name string) bool { return r.Clips[name] }

// Visualizer is the prepared input visualizer: gesture name -> glyph
type Visualizer struct {
	Name   string
	Glyphs map[string]string

	Placeholder bool
}

func (*Visualizer) PreparedKind() Kind { return KindInputVisualizer }

// SilentBundle is the placeholder prepared asset for an audio bundle that
// was skipped or could not be loaded. Lookups succeed and play nothing.
type SilentBundle struct {
	Name string
}

func (*SilentBundle) PreparedKind() Kind { return KindAudioBundle }

// PlaceholderFor returns the default prepared asset that fills d's
// container slot under the SkipAndContinue failure policy
func PlaceholderFor(d Descriptor) Prepared {
	switch d.Kind {
	case KindLevel:
		return &Level{ID: d.LevelID, Name: d.Name, Placeholder: true}
	case KindCharacter:
		return &CharacterRig{
			Name:        d.Name,
			Bones:       map[string]string{},
			Clips:       map[string]bool{},
			Placeholder: true,
		}
	case KindInputVisualizer:
		return &Visualizer{Name: d.Name, Glyphs: map[string]string{}, Placeholder: true}
	case KindAudioBundle:
		return &SilentBundle{Name: d.Name}
	}
	panic("asset: placeholder for unknown kind " + d.Kind.String())
}
