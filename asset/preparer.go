package asset

import (
	"fmt"

	"github.com/rs/zerolog"
)

// PhysicsBinder attaches collision geometry to a prepared level.
// External collaborator; the core only invokes it.
type PhysicsBinder interface {
	BindLevel(lvl *Level) error
}

// AnimationBinder wires animation bindings onto a resolved character rig.
// External collaborator.
type AnimationBinder interface {
	BindRig(rig *CharacterRig) error
}

// BundleLoader performs the audio bundle's internal sub-resource fan-out
// and returns one aggregate prepared asset. Implemented by the audio
// package. The fan-out is invisible to the caller: one bundle, one unit.
type BundleLoader interface {
	LoadBundle(m *BundleManifest) (Prepared, error)
}

// Preparer performs synchronous, type-specific post-fetch setup.
// Collaborator bindings are optional except Bundles, which is required to
// prepare an audio bundle. Safe for use from a single goroutine at a time;
// the orchestrator's drain loop provides that serialization.
type Preparer struct {
	Physics PhysicsBinder
	Anim    AnimationBinder
	Bundles BundleLoader
	Log     zerolog.Logger
}

// Prepare dispatches on the descriptor kind. Dispatch is exhaustive over
// the closed kind set; an unknown kind or a mismatched handle is a
// PrepareError, never a silent default.
func (p *Preparer) Prepare(d Descriptor, h Handle) (Prepared, error) {
	if h == nil {
		return nil, &PrepareError{Descriptor: d, Cause: fmt.Errorf("nil handle")}
	}
	if h.HandleKind() != d.Kind {
		return nil, &PrepareError{
			Descriptor: d,
			Cause:      fmt.Errorf("%w: handle is %s", ErrKindMismatch, h.HandleKind()),
		}
	}

	var (
		out Prepared
		err error
	)
	switch d.Kind {
	case KindLevel:
		out, err = p.prepareLevel(d, h.(*LevelData))
	case KindCharacter:
		out, err = p.prepareCharacter(d, h.(*CharacterData))
	case KindInputVisualizer:
		out, err = p.prepareVisualizer(d, h.(*VisualizerData))
	case KindAudioBundle:
		out, err = p.prepareBundle(d, h.(*BundleManifest))
	default:
		err = fmt.Errorf("%w: %d", ErrUnknownKind, int(d.Kind))
	}
	if err != nil {
		return nil, &PrepareError{Descriptor: d, Cause: err}
	}

	p.Log.Debug().Stringer("asset", d).Msg("prepared")
	return out, nil
}

func (p *Preparer) prepareLevel(d Descriptor, data *LevelData) (*Level, error) {
	if data.Width <= 0 || data.Height <= 0 {
		return nil, fmt.Errorf("level %s: non-positive bounds %gx%g", d.LevelID, data.Width, data.Height)
	}

	lvl := &Level{
		ID:       d.LevelID,
		Name:     data.DisplayName,
		Bounds:   Platform{W: data.Width, H: data.Height},
		Spawn:    data.Spawn,
		PortalID: data.PortalID,
	}
	if lvl.Name == "" {
		lvl.Name = d.Name
	}
	lvl.Colliders = append(lvl.Colliders, data.Platforms...)

	if p.Physics != nil {
		if err := p.Physics.BindLevel(lvl); err != nil {
			return nil, fmt.Errorf("bind physics: %w", err)
		}
	}
	return lvl, nil
}

func (p *Preparer) prepareCharacter(d Descriptor, data *CharacterData) (*CharacterRig, error) {
	rig := &CharacterRig{
		Name:  data.Name,
		Bones: make(map[string]string, len(data.Joints)),
		Clips: make(map[string]bool, len(data.Clips)),
	}
	if rig.Name == "" {
		rig.Name = d.Name
	}

	// Resolve the animation root: exactly one parentless joint
	for _, j := range data.Joints {
		if j.Name == "" {
			return nil, fmt.Errorf("character %s: unnamed joint", rig.Name)
		}
		if _, dup := rig.Bones[j.Name]; dup {
			return nil, fmt.Errorf("character %s: duplicate joint %q", rig.Name, j.Name)
		}
		rig.Bones[j.Name] = j.Parent
		if j.Parent == "" {
			if rig.Root != "" {
				return nil, fmt.Errorf("character %s: multiple root joints (%q, %q)", rig.Name, rig.Root, j.Name)
			}
			rig.Root = j.Name
		}
	}
	if rig.Root == "" {
		return nil, fmt.Errorf("character %s: no root joint", rig.Name)
	}

	for _, c := range data.Clips {
		rig.Clips[c] = true
	}

	if p.Anim != nil {
		if err := p.Anim.BindRig(rig); err != nil {
			return nil, fmt.Errorf("bind animation: %w", err)
		}
	}
	return rig, nil
}

func (p *Preparer) prepareVisualizer(d Descriptor, data *VisualizerData) (*Visualizer, error) {
	v := &Visualizer{
		Name:   data.Name,
		Glyphs: make(map[string]string, len(data.Glyphs)),
	}
	if v.Name == "" {
		v.Name = d.Name
	}
	for _, g := range data.Glyphs {
		if g.Gesture == "" {
			return nil, fmt.Errorf("visualizer %s: glyph with empty gesture", v.Name)
		}
		v.Glyphs[g.Gesture] = g.Symbol
	}
	return v, nil
}

func (p *Preparer) prepareBundle(d Descriptor, m *BundleManifest) (Prepared, error) {
	if p.Bundles == nil {
		return nil, ErrNoBundleLoader
	}
	if m.Name == "" {
		m.Name = d.Name
	}
	return p.Bundles.LoadBundle(m)
}
