// Package api provides the HTTP API for checking, planning and deploying
// projects.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/artpar/hoster-template/internal/core/domain"
	"github.com/artpar/hoster-template/internal/core/validation"
	"github.com/artpar/hoster-template/internal/shell/deploy"
	"github.com/artpar/hoster-template/internal/shell/store"
	"github.com/artpar/hoster-template/internal/shell/stream"
	"github.com/artpar/hoster-template/internal/shell/template"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deployer is the deployment runner the handler drives.
type Deployer interface {
	Deploy(ctx context.Context, req deploy.Request) (*domain.Deployment, error)
	Match(ctx context.Context, projectRoot string) (deploy.Template, error)
	Plan(ctx context.Context, projectRoot string) (template.Plan, error)
	List(ctx context.Context, opts store.ListOptions) ([]domain.Deployment, error)
	Get(ctx context.Context, id string) (*domain.Deployment, error)
}

// ReadyCheck reports whether a dependency is usable.
type ReadyCheck func(ctx context.Context) error

// =============================================================================
// Handler
// =============================================================================

// Config configures a Handler.
type Config struct {
	// ProjectsDir confines project roots; roots outside it are rejected.
	// Empty allows any absolute path.
	ProjectsDir string
	Checks      map[string]ReadyCheck // run by /ready
	Metrics     http.Handler          // served on /metrics when non-nil
}

// Handler provides HTTP handlers for the API.
type Handler struct {
	deployer    Deployer
	projectsDir string
	checks      map[string]ReadyCheck
	metrics     http.Handler
	logger      *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(d Deployer, cfg Config, l *slog.Logger) *Handler {
	if l == nil {
		l = slog.Default()
	}
	return &Handler{
		deployer:    d,
		projectsDir: cfg.ProjectsDir,
		checks:      cfg.Checks,
		metrics:     cfg.Metrics,
		logger:      l,
	}
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.jsonContentType)
	r.Use(h.requestIDHeader)

	// Health endpoints
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics)
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/templates", func(r chi.Router) {
			r.Post("/check", h.handleCheck)
			r.Post("/plan", h.handlePlan)
		})

		r.Route("/deployments", func(r chi.Router) {
			r.Post("/", h.handleDeploy)
			r.Get("/", h.handleListDeployments)
			r.Get("/{id}", h.handleGetDeployment)
		})
	})

	return r
}

// =============================================================================
// Middleware
// =============================================================================

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	ready := true
	for _, name := range names {
		if err := h.checks[name](r.Context()); err != nil {
			h.logger.Warn("readiness check failed", "check", name, "error", err)
			results[name] = "failed"
			ready = false
			continue
		}
		results[name] = "ok"
	}

	if !ready {
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{Status: "not_ready", Checks: results})
		return
	}
	h.writeJSON(w, http.StatusOK, ReadyResponse{Status: "ready", Checks: results})
}

// =============================================================================
// Template Handlers
// =============================================================================

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !h.decode(w, r, &req) {
		return
	}
	if msg := h.validateProjectRoot(req.ProjectRoot); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg, "validation_error")
		return
	}

	tmpl, err := h.deployer.Match(r.Context(), req.ProjectRoot)
	if err != nil {
		h.writeJSON(w, http.StatusOK, CheckResponse{Matched: false})
		return
	}
	h.writeJSON(w, http.StatusOK, CheckResponse{Template: tmpl.Name(), Matched: true})
}

func (h *Handler) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !h.decode(w, r, &req) {
		return
	}
	if msg := h.validateProjectRoot(req.ProjectRoot); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg, "validation_error")
		return
	}

	plan, err := h.deployer.Plan(r.Context(), req.ProjectRoot)
	if err != nil {
		if errors.Is(err, deploy.ErrNoTemplate) {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error(), "no_template")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error(), "internal_error")
		return
	}
	h.writeJSON(w, http.StatusOK, plan)
}

// =============================================================================
// Deployment Handlers
// =============================================================================

// handleDeploy streams status events as JSON lines until the deployment
// finishes. Failures after the stream starts are reported in the stream.
func (h *Handler) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var req DeployRequest
	if !h.decode(w, r, &req) {
		return
	}
	if field, msg := validation.ValidateDeployRequest(req.Identity, req.ProjectRoot, h.projectsDir); field != "" {
		h.writeError(w, http.StatusBadRequest, msg, "validation_error")
		return
	}
	if msg := h.validateProjectRoot(req.ProjectRoot); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg, "validation_error")
		return
	}

	w.Header().Set("Content-Type", stream.ContentType)
	w.WriteHeader(http.StatusOK)

	deployment, err := h.deployer.Deploy(r.Context(), deploy.Request{
		Identity:    req.Identity,
		ProjectRoot: req.ProjectRoot,
		Stream:      stream.NewJSONLines(w),
	})

	attrs := []any{"project", req.ProjectRoot, "identity", req.Identity}
	if deployment != nil {
		attrs = append(attrs, "deployment_id", deployment.ID, "status", string(deployment.Status))
	}
	if err != nil {
		h.logger.Warn("deployment request failed", append(attrs, "error", err)...)
		return
	}
	h.logger.Info("deployment request finished", attrs...)
}

func (h *Handler) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	opts := store.DefaultListOptions()

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			opts.Limit = l
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil {
			opts.Offset = o
		}
	}
	opts.Identity = r.URL.Query().Get("identity")
	opts = opts.Normalize()

	deployments, err := h.deployer.List(r.Context(), opts)
	if err != nil {
		h.logger.Error("failed to list deployments", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list deployments", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, ListDeploymentsResponse{
		Deployments: deployments,
		Limit:       opts.Limit,
		Offset:      opts.Offset,
	})
}

func (h *Handler) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deployment, err := h.deployer.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "deployment not found", "deployment_not_found")
			return
		}
		h.logger.Error("failed to get deployment", "deployment_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get deployment", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, deployment)
}

// =============================================================================
// Helpers
// =============================================================================

// validateProjectRoot returns a validation message, or "" when projectRoot
// may be deployed. Symlinks are resolved so a link inside the projects
// directory cannot point outside it.
func (h *Handler) validateProjectRoot(projectRoot string) string {
	if _, msg := validation.ValidateProjectRoot(projectRoot, h.projectsDir); msg != "" {
		return msg
	}
	if h.projectsDir == "" {
		return ""
	}

	resolved, err := filepath.EvalSymlinks(projectRoot)
	if err != nil {
		// Missing roots are reported by the template as unreadable
		return ""
	}
	base, err := filepath.EvalSymlinks(h.projectsDir)
	if err != nil {
		base = h.projectsDir
	}
	if !validation.IsWithin(base, resolved) {
		return "project_root must be inside the projects directory"
	}
	return ""
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
