package template

import (
	"context"

	"github.com/artpar/hoster-template/internal/core/domain"
)

// =============================================================================
// Result Stream
// =============================================================================

// ResultStream is the append-only sink a template reports status on.
// The template closes it exactly once when it is done.
type ResultStream interface {
	Write(event domain.StatusEvent) error
	Close() error
}

// =============================================================================
// Build and Start Collaborators
// =============================================================================

// BuildRequest is passed to a Builder.
type BuildRequest struct {
	Identity    string
	ProjectRoot string
	Stream      ResultStream
}

// Builder builds an image from a project root that already holds a Dockerfile.
// Failures that produced build output should be returned as *BuildError.
type Builder interface {
	Build(ctx context.Context, req BuildRequest) (domain.Build, error)
}

// StartRequest is passed to a Starter.
type StartRequest struct {
	Build       domain.Build
	Identity    string
	ProjectRoot string
	Existing    []domain.Container
	Stream      ResultStream
}

// Starter starts a container from a built image, replacing Existing.
type Starter interface {
	Start(ctx context.Context, req StartRequest) (domain.Container, error)
}

// =============================================================================
// Build Error
// =============================================================================

// BuildError is a build failure carrying the build output collected so far.
type BuildError struct {
	Err error
	Log string
}

func (e *BuildError) Error() string {
	return e.Err.Error()
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// NewBuildError creates a new BuildError.
func NewBuildError(err error, log string) *BuildError {
	return &BuildError{Err: err, Log: log}
}
