package asset

import (
	"errors"
	"fmt"
)

// Kind identifies the loadable asset categories
// The set is closed: dispatch over Kind must be exhaustive, and an
// out-of-range value is always a loud error, never a fallthrough
type Kind int

const (
	KindLevel Kind = iota
	KindCharacter
	KindInputVisualizer
	KindAudioBundle
	kindCount
)

// kindNames maps Kind to its manifest/YAML spelling
var kindNames = [kindCount]string{
	KindLevel:           "level",
	KindCharacter:       "character",
	KindInputVisualizer: "input_visualizer",
	KindAudioBundle:     "audio_bundle",
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k is a member of the closed kind set
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

// KindFromString parses a manifest kind spelling
func KindFromString(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Descriptor identifies one loadable unit of the manifest
// Immutable value; LevelID is set only for KindLevel
type Descriptor struct {
	Name    string
	Kind    Kind
	LevelID string
}

func (d Descriptor) String() string {
	if d.Kind == KindLevel {
		return fmt.Sprintf("%s[%s:%s]", d.Kind, d.Name, d.LevelID)
	}
	return fmt.Sprintf("%s[%s]", d.Kind, d.Name)
}

// Sentinel errors
var (
	ErrUnknownKind    = errors.New("asset: unknown asset kind")
	ErrKindMismatch   = errors.New("asset: handle kind does not match descriptor")
	ErrDuplicateSlot  = errors.New("asset: duplicate asset for container slot")
	ErrSealed         = errors.New("asset: container builder already sealed")
	ErrNoBundleLoader = errors.New("asset: no bundle loader configured")
)

// FetchError reports a single descriptor whose fetch failed
type FetchError struct {
	Descriptor Descriptor
	Cause      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Descriptor, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// PrepareError reports a loaded handle that could not be prepared
type PrepareError struct {
	Descriptor Descriptor
	Cause      error
}

func (e *PrepareError) Error() string {
	return fmt.Sprintf("prepare %s: %v", e.Descriptor, e.Cause)
}

func (e *PrepareError) Unwrap() error { return e.Cause }
