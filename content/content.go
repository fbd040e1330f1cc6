// Package content serves the game's authored assets from an embedded
// file tree. It implements the loading core's Fetcher boundary for local
// builds; the shipped client swaps in the rendering runtime's entity
// loader behind the same interface.
package content

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/rockfall/asset"
)

//go:embed data
var contentFS embed.FS

// Fetcher reads and decodes asset definitions from a content tree
type Fetcher struct {
	fsys fs.FS
	log  zerolog.Logger
}

// NewFetcher serves the embedded content tree
func NewFetcher(log zerolog.Logger) *Fetcher {
	sub, err := fs.Sub(contentFS, "data")
	if err != nil {
		// The embed directive guarantees the directory exists
		panic("content: embedded tree missing data root: " + err.Error())
	}
	return &Fetcher{fsys: sub, log: log}
}

// NewFetcherFS serves a caller-provided tree (tests, modding)
func NewFetcherFS(fsys fs.FS, log zerolog.Logger) *Fetcher {
	return &Fetcher{fsys: fsys, log: log}
}

// Fetch loads and decodes the descriptor's definition file
func (f *Fetcher) Fetch(ctx context.Context, d asset.Descriptor) (asset.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := pathFor(d)
	if err != nil {
		return nil, err
	}
	raw, err := fs.ReadFile(f.fsys, p)
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", p, err)
	}

	h, err := decode(d, raw)
	if err != nil {
		return nil, fmt.Errorf("content: decode %s: %w", p, err)
	}
	f.log.Debug().Stringer("asset", d).Str("path", p).Msg("content fetched")
	return h, nil
}

// pathFor maps a descriptor to its definition file. Exhaustive over the
// kind set.
func pathFor(d asset.Descriptor) (string, error) {
	switch d.Kind {
	case asset.KindLevel:
		return path.Join("levels", d.LevelID+".yaml"), nil
	case asset.KindCharacter:
		return path.Join("characters", d.Name+".yaml"), nil
	case asset.KindInputVisualizer:
		return path.Join("visualizers", d.Name+".yaml"), nil
	case asset.KindAudioBundle:
		return path.Join("audio", d.Name+".yaml"), nil
	}
	return "", fmt.Errorf("%w: %d", asset.ErrUnknownKind, int(d.Kind))
}

func decode(d asset.Descriptor, raw []byte) (asset.Handle, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	switch d.Kind {
	case asset.KindLevel:
		var data asset.LevelData
		if err := dec.Decode(&data); err != nil {
			return nil, err
		}
		if data.ID == "" {
			data.ID = d.LevelID
		}
		if data.ID != d.LevelID {
			return nil, fmt.Errorf("level file declares id %q, descriptor wants %q", data.ID, d.LevelID)
		}
		return &data, nil
	case asset.KindCharacter:
		var data asset.CharacterData
		if err := dec.Decode(&data); err != nil {
			return nil, err
		}
		return &data, nil
	case asset.KindInputVisualizer:
		var data asset.VisualizerData
		if err := dec.Decode(&data); err != nil {
			return nil, err
		}
		return &data, nil
	case asset.KindAudioBundle:
		var data asset.BundleManifest
		if err := dec.Decode(&data); err != nil {
			return nil, err
		}
		return &data, nil
	}
	return nil, fmt.Errorf("%w: %d", asset.ErrUnknownKind, int(d.Kind))
}
