package asset

import "context"

// Fetcher turns a descriptor into a raw resource handle.
// Implemented by external collaborators (embedded content, the rendering
// runtime's entity loader). Calls run concurrently from orchestrator
// goroutines with no ordering contract between them; implementations must
// honor ctx cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, d Descriptor) (Handle, error)
}

// FetchFunc adapts a function to the Fetcher interface
type FetchFunc func(ctx context.Context, d Descriptor) (Handle, error)

func (f FetchFunc) Fetch(ctx context.Context, d Descriptor) (Handle, error) {
	return f(ctx, d)
}

// Outcome is the result of one fetch, transferred from a fetch goroutine
// to the orchestrator's drain loop. Value type; carries no shared mutable
// state.
type Outcome struct {
	Descriptor Descriptor
	Handle     Handle // nil when Err is set
	Err        error
}

// Ready reports whether the fetch produced a usable handle
func (o Outcome) Ready() bool { return o.Err == nil }
