// Package template implements the arm32v7 Node.js deployment template.
//
// A host platform calls CheckTemplate to ask whether the template can deploy
// a project and, if so, ExecuteTemplate to generate the Dockerfile and run the
// build and start collaborators it is handed.
package template

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/artpar/hoster-template/internal/core/domain"
	"github.com/artpar/hoster-template/internal/core/nodejs"
)

// Name identifies this template to the host platform.
const Name = "exoframe-template-arm32v7-nodejs"

// Status messages written to the result stream.
const (
	MessageDeploying = "Deploying Node.js project on armhf.."
	MessageSuccess   = "Deployment success!"
)

var (
	ErrNoStream  = errors.New("result stream is required")
	ErrNoBuilder = errors.New("build collaborator is required")
	ErrNoStarter = errors.New("start collaborator is required")
)

// =============================================================================
// Requests and Result
// =============================================================================

// CheckRequest asks whether a project fits this template.
type CheckRequest struct {
	ProjectRoot string
}

// ExecuteRequest carries everything one deployment needs.
type ExecuteRequest struct {
	Identity    string
	ProjectRoot string
	Stream      ResultStream
	Builder     Builder
	Starter     Starter
	Existing    []domain.Container
}

// Result is the outcome of one ExecuteTemplate call. It mirrors the terminal
// event written to the stream.
type Result struct {
	Strategy    nodejs.LockStrategy
	Deployments []domain.Container
	Err         error
	Log         string
}

// Failed reports whether the execution ended in an error.
func (r Result) Failed() bool {
	return r.Err != nil
}

// =============================================================================
// Template
// =============================================================================

// Template is the Node.js template. It holds no per-deployment state and is
// safe for concurrent use.
type Template struct {
	logger *slog.Logger
}

// New creates a new template.
func New(logger *slog.Logger) *Template {
	if logger == nil {
		logger = slog.Default()
	}
	return &Template{logger: logger.With("template", Name)}
}

// Name returns the template name.
func (t *Template) Name() string {
	return Name
}

// CheckTemplate reports whether the project has a package.json. A directory
// that cannot be read does not match.
func (t *Template) CheckTemplate(ctx context.Context, req CheckRequest) bool {
	project, err := ReadProject(req.ProjectRoot)
	match := nodejs.Classify(project, err)

	t.logger.DebugContext(ctx, "checked project",
		"project", req.ProjectRoot,
		"match", match.String(),
		"error", err,
	)

	return match.Matched()
}

// Plan returns the dry-run plan for a project.
func (t *Template) Plan(ctx context.Context, root string) Plan {
	return PlanProject(root)
}

// ExecuteTemplate writes the Dockerfile, builds and starts the project, and
// reports on req.Stream. Exactly one terminal event is written and the
// stream is always closed. Failures never escape as errors or panics; they
// are reported on the stream and in the returned Result.
func (t *Template) ExecuteTemplate(ctx context.Context, req ExecuteRequest) (result Result) {
	if req.Stream == nil {
		t.logger.ErrorContext(ctx, "deployment rejected", "project", req.ProjectRoot, "error", ErrNoStream)
		return Result{Err: ErrNoStream}
	}

	terminated := false
	defer func() {
		if r := recover(); r != nil {
			result.Deployments = nil
			result.Err = fmt.Errorf("deployment panicked: %v", r)
			if !terminated {
				t.fail(ctx, req, &result)
			}
		}
		if err := req.Stream.Close(); err != nil {
			t.logger.WarnContext(ctx, "failed to close result stream", "project", req.ProjectRoot, "error", err)
		}
	}()

	container, err := t.execute(ctx, req, &result)
	if err != nil {
		result.Err = err
		var buildErr *BuildError
		if errors.As(err, &buildErr) {
			result.Log = buildErr.Log
		}
		terminated = true
		t.fail(ctx, req, &result)
		return result
	}

	result.Deployments = []domain.Container{container}
	t.logger.InfoContext(ctx, "deployment succeeded",
		"project", req.ProjectRoot,
		"identity", req.Identity,
		"strategy", result.Strategy.String(),
		"container", container.Name,
	)
	terminated = true
	t.emit(ctx, req.Stream, domain.SuccessEvent(MessageSuccess, result.Deployments))
	return result
}

// execute runs the deployment steps in order and stops at the first failure.
func (t *Template) execute(ctx context.Context, req ExecuteRequest, result *Result) (domain.Container, error) {
	if req.Builder == nil {
		return domain.Container{}, ErrNoBuilder
	}
	if req.Starter == nil {
		return domain.Container{}, ErrNoStarter
	}

	// 1. Re-read the project; nothing from CheckTemplate is reused
	project, err := ReadProject(req.ProjectRoot)
	if err != nil {
		return domain.Container{}, err
	}

	// 2. Generate the Dockerfile
	result.Strategy = nodejs.SelectStrategy(project)
	dockerfile := nodejs.GenerateDockerfile(result.Strategy)

	// 3. Persist it in the project root
	if err := WriteDockerfile(req.ProjectRoot, dockerfile); err != nil {
		return domain.Container{}, err
	}

	t.logger.InfoContext(ctx, "deploying project",
		"project", req.ProjectRoot,
		"identity", req.Identity,
		"strategy", result.Strategy.String(),
	)
	t.emit(ctx, req.Stream, domain.InfoEvent(MessageDeploying))

	// 4. Build the image
	build, err := req.Builder.Build(ctx, BuildRequest{
		Identity:    req.Identity,
		ProjectRoot: req.ProjectRoot,
		Stream:      req.Stream,
	})
	if err != nil {
		return domain.Container{}, err
	}
	t.logger.DebugContext(ctx, "build finished", "project", req.ProjectRoot, "image", build.Image)

	// 5. Start the container
	container, err := req.Starter.Start(ctx, StartRequest{
		Build:       build,
		Identity:    req.Identity,
		ProjectRoot: req.ProjectRoot,
		Existing:    req.Existing,
		Stream:      req.Stream,
	})
	if err != nil {
		return domain.Container{}, err
	}
	t.logger.DebugContext(ctx, "container started", "project", req.ProjectRoot, "container_id", container.ID)

	return container, nil
}

// fail logs the failure and writes the terminal error event.
func (t *Template) fail(ctx context.Context, req ExecuteRequest, result *Result) {
	t.logger.ErrorContext(ctx, "deployment failed",
		"project", req.ProjectRoot,
		"identity", req.Identity,
		"strategy", result.Strategy.String(),
		"error", result.Err,
	)
	t.emit(ctx, req.Stream, domain.ErrorEvent(result.Err.Error(), result.Log))
}

// emit writes an event; a failing sink is logged, not fatal.
func (t *Template) emit(ctx context.Context, stream ResultStream, event domain.StatusEvent) {
	if err := stream.Write(event); err != nil {
		t.logger.WarnContext(ctx, "failed to write status event",
			"level", string(event.Level),
			"error", err,
		)
	}
}
