package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/artpar/hoster-template/internal/core/nodejs"
	"github.com/artpar/hoster-template/internal/shell/api"
	"github.com/artpar/hoster-template/internal/shell/deploy"
	"github.com/artpar/hoster-template/internal/shell/docker"
	"github.com/artpar/hoster-template/internal/shell/metrics"
	"github.com/artpar/hoster-template/internal/shell/store"
	"github.com/artpar/hoster-template/internal/shell/template"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitDockerError     = 3
	ExitHTTPServerError = 4
	ExitDeployFailed    = 5
	ExitUsageError      = 64
)

// =============================================================================
// App
// =============================================================================

// App holds the wired components shared by the serve and deploy commands.
type App struct {
	config  *Config
	store   *store.SQLiteStore
	docker  docker.Client
	metrics *metrics.Metrics
	runner  *deploy.Runner
	logger  *slog.Logger
}

// templates returns the template chain in the order it is tried.
func templates(logger *slog.Logger) []deploy.Template {
	return []deploy.Template{
		template.New(logger),
	}
}

// NewApp connects to the database and Docker and wires the runner.
func NewApp(ctx context.Context, cfg *Config, logger *slog.Logger) (*App, error) {
	// Connect to database
	s, err := store.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		return nil, &ServerError{
			Op:       "NewApp",
			Err:      err,
			ExitCode: ExitDatabaseError,
		}
	}

	// Connect to Docker
	d, err := docker.NewDockerClient(cfg.Docker.Host)
	if err != nil {
		s.Close()
		return nil, &ServerError{
			Op:       "NewApp",
			Err:      err,
			ExitCode: ExitDockerError,
		}
	}

	// Verify Docker connection
	if err := d.Ping(ctx); err != nil {
		s.Close()
		d.Close()
		return nil, &ServerError{
			Op:       "NewApp",
			Err:      err,
			ExitCode: ExitDockerError,
		}
	}

	m := metrics.New(metrics.Config{
		Enabled:   cfg.Metrics.Enabled,
		Namespace: cfg.Metrics.Namespace,
	})

	var ports []int
	if cfg.Docker.PublishPorts {
		ports = nodejs.ExposedPorts()
	}

	runner := deploy.NewRunner(deploy.Options{
		Templates: templates(logger),
		Builder: docker.NewImageBuilder(d, logger, docker.BuilderConfig{
			ImagePrefix: cfg.Docker.ImagePrefix,
			Platform:    cfg.Docker.Platform,
		}),
		Starter: docker.NewContainerStarter(d, logger, docker.StarterConfig{
			Template:      template.Name,
			RestartPolicy: cfg.Docker.RestartPolicy,
			Ports:         ports,
			StopTimeout:   cfg.Docker.StopTimeout,
		}),
		Store:   s,
		Metrics: m,
		Logger:  logger,
	})

	return &App{
		config:  cfg,
		store:   s,
		docker:  d,
		metrics: m,
		runner:  runner,
		logger:  logger,
	}, nil
}

// Close releases the Docker client and the database.
func (a *App) Close() {
	if err := a.docker.Close(); err != nil {
		a.logger.Error("Docker client close error", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("database close error", "error", err)
	}
}

// =============================================================================
// Server
// =============================================================================

// Server serves the HTTP API.
type Server struct {
	app        *App
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new server for app.
func NewServer(app *App) *Server {
	handler := api.NewHandler(app.runner, api.Config{
		ProjectsDir: app.config.ProjectsDir,
		Checks: map[string]api.ReadyCheck{
			"database": app.store.Ping,
			"docker":   app.docker.Ping,
		},
		Metrics: app.metrics.Handler(),
	}, app.logger)

	cfg := app.config.Server
	return &Server{
		app: app,
		httpServer: &http.Server{
			Addr:         cfg.Address(),
			Handler:      handler.Routes(),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: app.logger,
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	// Start HTTP server in goroutine
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.app.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case err := <-errCh:
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		s.logger.Info("received shutdown signal")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, s.app.config.Server.ShutdownTimeout)
	defer cancel()

	// Shutdown HTTP server
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
