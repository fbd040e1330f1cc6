package session

// Service is a downstream collaborator gated on the lifecycle: menu,
// render shell, audio sink. Services are registered before Start and
// brought up only after the session reaches AssetsLoaded and the settle
// delay has elapsed.
type Service interface {
	// Name returns the unique identifier for this service
	Name() string

	// Dependencies lists service names that must initialize first
	Dependencies() []string

	// Init receives the session for dependency injection. The asset
	// container is published by the time Init runs.
	Init(s *Session) error

	// Start begins service operation, after all services initialized
	Start() error

	// Stop halts service operation and releases resources
	Stop() error
}
