package asset

import (
	"fmt"
	"sort"
)

// Container is the immutable keyed snapshot of prepared assets, the sole
// hand-off artifact between loading and gameplay. Built privately through
// a Builder, published exactly once per loading cycle, then shared
// read-only with any number of concurrent readers.
type Container struct {
	levels     map[string]*Level
	character  *CharacterRig
	visualizer *Visualizer
	audio      Prepared
}

// Level returns the prepared level for id
func (c *Container) Level(id string) (*Level, bool) {
	lvl, ok := c.levels[id]
	return lvl, ok
}

// LevelIDs returns the loaded level identifiers in sorted order
func (c *Container) LevelIDs() []string {
	ids := make([]string, 0, len(c.levels))
	for id := range c.levels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CharacterRoot returns the singleton prepared character rig, nil if the
// manifest carried none
func (c *Container) CharacterRoot() *CharacterRig { return c.character }

// Visualizer returns the singleton prepared input visualizer
func (c *Container) Visualizer() *Visualizer { return c.visualizer }

// AudioBundle returns the singleton prepared audio bundle
func (c *Container) AudioBundle() Prepared { return c.audio }

// Len returns the number of filled container slots
func (c *Container) Len() int {
	n := len(c.levels)
	if c.character != nil {
		n++
	}
	if c.visualizer != nil {
		n++
	}
	if c.audio != nil {
		n++
	}
	return n
}

// Builder assembles a Container during one loading cycle. Owned
// exclusively by the orchestrator's drain loop; not safe for concurrent
// use, by design — all mutation is serialized on that loop.
type Builder struct {
	levels     map[string]*Level
	character  *CharacterRig
	visualizer *Visualizer
	audio      Prepared
	sealed     bool
}

func NewBuilder() *Builder {
	return &Builder{levels: make(map[string]*Level)}
}

// Insert places a prepared asset into the slot keyed by its descriptor.
// Level slots key on LevelID; character, visualizer and audio are
// singleton slots. Filling an occupied slot is an error.
func (b *Builder) Insert(d Descriptor, p Prepared) error {
	if b.sealed {
		return ErrSealed
	}
	if p == nil {
		return fmt.Errorf("asset: insert nil prepared asset for %s", d)
	}
	if p.PreparedKind() != d.Kind {
		return fmt.Errorf("%w: prepared %s for descriptor %s", ErrKindMismatch, p.PreparedKind(), d)
	}

	switch d.Kind {
	case KindLevel:
		lvl, ok := p.(*Level)
		if !ok {
			return fmt.Errorf("%w: %T is not *Level", ErrKindMismatch, p)
		}
		if _, dup := b.levels[d.LevelID]; dup {
			return fmt.Errorf("%w: level %q", ErrDuplicateSlot, d.LevelID)
		}
		b.levels[d.LevelID] = lvl
	case KindCharacter:
		rig, ok := p.(*CharacterRig)
		if !ok {
			return fmt.Errorf("%w: %T is not *CharacterRig", ErrKindMismatch, p)
		}
		if b.character != nil {
			return fmt.Errorf("%w: character root", ErrDuplicateSlot)
		}
		b.character = rig
	case KindInputVisualizer:
		v, ok := p.(*Visualizer)
		if !ok {
			return fmt.Errorf("%w: %T is not *Visualizer", ErrKindMismatch, p)
		}
		if b.visualizer != nil {
			return fmt.Errorf("%w: input visualizer", ErrDuplicateSlot)
		}
		b.visualizer = v
	case KindAudioBundle:
		if b.audio != nil {
			return fmt.Errorf("%w: audio bundle", ErrDuplicateSlot)
		}
		b.audio = p
	default:
		return fmt.Errorf("%w: %d", ErrUnknownKind, int(d.Kind))
	}
	return nil
}

// Seal finalizes the container. The builder is unusable afterwards; the
// returned snapshot is never mutated again.
func (b *Builder) Seal() *Container {
	if b.sealed {
		panic("asset: Seal called twice on one builder")
	}
	b.sealed = true

	c := &Container{
		levels:     make(map[string]*Level, len(b.levels)),
		character:  b.character,
		visualizer: b.visualizer,
		audio:      b.audio,
	}
	for id, lvl := range b.levels {
		c.levels[id] = lvl
	}
	b.levels = nil
	return c
}
