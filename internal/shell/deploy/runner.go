// Package deploy runs the host side of the template contract: it picks the
// first template in a chain that claims a project, executes it with the
// configured collaborators, and records the outcome.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/artpar/hoster-template/internal/core/domain"
	"github.com/artpar/hoster-template/internal/shell/metrics"
	"github.com/artpar/hoster-template/internal/shell/store"
	"github.com/artpar/hoster-template/internal/shell/template"
)

var (
	ErrNoTemplate = errors.New("no template matches project")
	ErrNoStream   = errors.New("result stream is required")
)

// Template is one entry of the template chain.
type Template interface {
	Name() string
	CheckTemplate(ctx context.Context, req template.CheckRequest) bool
	ExecuteTemplate(ctx context.Context, req template.ExecuteRequest) template.Result
	Plan(ctx context.Context, root string) template.Plan
}

// Options configures a Runner.
type Options struct {
	Templates []Template // tried in order
	Builder   template.Builder
	Starter   template.Starter
	Store     store.Store
	Metrics   *metrics.Metrics // optional
	Logger    *slog.Logger
}

// Request is one deployment request.
type Request struct {
	Identity    string
	ProjectRoot string
	Stream      template.ResultStream
}

// =============================================================================
// Runner
// =============================================================================

// Runner deploys projects through a template chain. Deployments of the same
// project are serialized.
type Runner struct {
	templates []Template
	builder   template.Builder
	starter   template.Starter
	store     store.Store
	metrics   *metrics.Metrics
	logger    *slog.Logger

	locksMu sync.Mutex
	locks   map[string]*projectLock
}

// projectLock serializes deployments of one project. refs counts holders
// and waiters; the entry is dropped when it reaches zero.
type projectLock struct {
	mu   sync.Mutex
	refs int
}

// NewRunner creates a new runner.
func NewRunner(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		templates: opts.Templates,
		builder:   opts.Builder,
		starter:   opts.Starter,
		store:     opts.Store,
		metrics:   opts.Metrics,
		logger:    logger.With("component", "deploy"),
		locks:     make(map[string]*projectLock),
	}
}

// Match returns the first template that claims the project.
func (r *Runner) Match(ctx context.Context, projectRoot string) (Template, error) {
	for _, t := range r.templates {
		matched := t.CheckTemplate(ctx, template.CheckRequest{ProjectRoot: projectRoot})
		r.metrics.RecordCheck(t.Name(), matched)
		if matched {
			return t, nil
		}
	}
	return nil, ErrNoTemplate
}

// Plan returns the dry-run plan of the first matching template.
func (r *Runner) Plan(ctx context.Context, projectRoot string) (template.Plan, error) {
	t, err := r.Match(ctx, projectRoot)
	if err != nil {
		return template.Plan{}, err
	}
	return t.Plan(ctx, projectRoot), nil
}

// List returns recorded deployments, newest first.
func (r *Runner) List(ctx context.Context, opts store.ListOptions) ([]domain.Deployment, error) {
	return r.store.ListDeployments(ctx, opts)
}

// Get returns one recorded deployment.
func (r *Runner) Get(ctx context.Context, id string) (*domain.Deployment, error) {
	return r.store.GetDeployment(ctx, id)
}

// Deploy selects a template for req.ProjectRoot and executes it. Status is
// reported on req.Stream, which is always closed. The returned deployment
// is nil if no record was created; the error is the deployment failure, if
// any.
func (r *Runner) Deploy(ctx context.Context, req Request) (*domain.Deployment, error) {
	if req.Stream == nil {
		return nil, ErrNoStream
	}

	unlock := r.lock(req.Identity, req.ProjectRoot)
	defer unlock()

	// 1. Pick the template
	tmpl, err := r.Match(ctx, req.ProjectRoot)
	if err != nil {
		r.logger.WarnContext(ctx, "no template matched", "project", req.ProjectRoot)
		return nil, r.reject(ctx, req, err)
	}

	// 2. Find what this deployment replaces
	previous, err := r.store.GetActiveDeployment(ctx, req.Identity, req.ProjectRoot)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, r.reject(ctx, req, fmt.Errorf("failed to look up active deployment: %w", err))
	}
	var existing []domain.Container
	if previous != nil && previous.Container != nil {
		existing = []domain.Container{*previous.Container}
	}

	// 3. Record the attempt
	deployment, err := domain.NewDeployment(req.Identity, req.ProjectRoot, tmpl.Name())
	if err != nil {
		return nil, r.reject(ctx, req, err)
	}
	if err := r.store.CreateDeployment(ctx, deployment); err != nil {
		return nil, r.reject(ctx, req, fmt.Errorf("failed to record deployment: %w", err))
	}

	r.logger.InfoContext(ctx, "executing template",
		"deployment_id", deployment.ID,
		"template", tmpl.Name(),
		"project", req.ProjectRoot,
		"identity", req.Identity,
		"replacing", len(existing),
	)

	// 4. Execute; the template owns and closes the stream from here on
	r.metrics.ExecutionStarted()
	started := time.Now()
	result := tmpl.ExecuteTemplate(ctx, template.ExecuteRequest{
		Identity:    req.Identity,
		ProjectRoot: req.ProjectRoot,
		Stream:      req.Stream,
		Builder:     r.builder,
		Starter:     r.starter,
		Existing:    existing,
	})
	r.metrics.RecordExecution(tmpl.Name(), result.Strategy.String(), result.Failed(), time.Since(started))

	// 5. Record the outcome, even if the caller has gone away
	if err := r.record(context.WithoutCancel(ctx), deployment, previous, result); err != nil {
		r.logger.ErrorContext(ctx, "failed to record deployment outcome",
			"deployment_id", deployment.ID,
			"error", err,
		)
		if result.Err == nil {
			return deployment, err
		}
	}

	return deployment, result.Err
}

// record stores the execution result. On success the previous active
// deployment is marked replaced in the same transaction.
func (r *Runner) record(ctx context.Context, deployment, previous *domain.Deployment, result template.Result) error {
	deployment.Strategy = result.Strategy.String()

	if result.Failed() {
		if err := deployment.MarkFailed(result.Err.Error(), result.Log); err != nil {
			return err
		}
		return r.store.UpdateDeployment(ctx, deployment)
	}

	if len(result.Deployments) == 0 {
		return errors.New("template reported success without a container")
	}
	if err := deployment.MarkRunning(result.Deployments[0]); err != nil {
		return err
	}

	return r.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.UpdateDeployment(ctx, deployment); err != nil {
			return err
		}
		if previous == nil {
			return nil
		}
		if err := previous.MarkReplaced(); err != nil {
			return err
		}
		return tx.UpdateDeployment(ctx, previous)
	})
}

// reject reports a failure that happened before any template took over
// the stream, then closes the stream.
func (r *Runner) reject(ctx context.Context, req Request, err error) error {
	if writeErr := req.Stream.Write(domain.ErrorEvent(err.Error(), "")); writeErr != nil {
		r.logger.WarnContext(ctx, "failed to write status event", "error", writeErr)
	}
	if closeErr := req.Stream.Close(); closeErr != nil {
		r.logger.WarnContext(ctx, "failed to close result stream", "error", closeErr)
	}
	return err
}

// lock serializes deployments of one project and returns the unlock func.
func (r *Runner) lock(identity, projectRoot string) func() {
	key := identity + "\x00" + projectRoot

	r.locksMu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &projectLock{}
		r.locks[key] = l
	}
	l.refs++
	r.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		r.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, key)
		}
		r.locksMu.Unlock()
	}
}
