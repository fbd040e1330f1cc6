package asset

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Manifest is the fixed ordered list of descriptors loaded in one cycle.
// Known in full before loading starts; any length N >= 0 is legal (an
// empty manifest completes immediately).
type Manifest []Descriptor

// DefaultManifest returns the shipped five-entry asset set
func DefaultManifest() Manifest {
	return Manifest{
		{Name: "Main", Kind: KindLevel, LevelID: "Main"},
		{Name: "Tutorial", Kind: KindLevel, LevelID: "Tutorial"},
		{Name: "Rock", Kind: KindCharacter},
		{Name: "Visualizer", Kind: KindInputVisualizer},
		{Name: "Audio", Kind: KindAudioBundle},
	}
}

// Validate checks structural invariants: named entries, valid kinds,
// level entries carrying a level ID, unique level IDs, and at most one of
// each singleton slot (character, visualizer, audio bundle).
func (m Manifest) Validate() error {
	levelIDs := make(map[string]bool, len(m))
	singles := make(map[Kind]string)

	for i, d := range m {
		if d.Name == "" {
			return fmt.Errorf("asset: manifest entry %d has no name", i)
		}
		if !d.Kind.Valid() {
			return fmt.Errorf("%w: entry %q", ErrUnknownKind, d.Name)
		}
		switch d.Kind {
		case KindLevel:
			if d.LevelID == "" {
				return fmt.Errorf("asset: level entry %q has no level ID", d.Name)
			}
			if levelIDs[d.LevelID] {
				return fmt.Errorf("%w: level %q", ErrDuplicateSlot, d.LevelID)
			}
			levelIDs[d.LevelID] = true
		default:
			if prev, dup := singles[d.Kind]; dup {
				return fmt.Errorf("%w: %s entries %q and %q", ErrDuplicateSlot, d.Kind, prev, d.Name)
			}
			singles[d.Kind] = d.Name
		}
	}
	return nil
}

// manifestDoc is the YAML wire form of a manifest
type manifestDoc struct {
	Assets []descriptorDoc `yaml:"assets"`
}

type descriptorDoc struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	LevelID string `yaml:"level_id"`
}

// ParseManifest decodes and validates a YAML manifest document
func ParseManifest(r io.Reader) (Manifest, error) {
	var doc manifestDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("asset: decode manifest: %w", err)
	}

	m := make(Manifest, 0, len(doc.Assets))
	for _, e := range doc.Assets {
		k, err := KindFromString(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("asset: manifest entry %q: %w", e.Name, err)
		}
		m = append(m, Descriptor{Name: e.Name, Kind: k, LevelID: e.LevelID})
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
