// Command hoster-template checks, plans and deploys Node.js projects as
// arm32v7 containers, standalone or behind an HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/artpar/hoster-template/internal/core/validation"
	"github.com/artpar/hoster-template/internal/shell/deploy"
	"github.com/artpar/hoster-template/internal/shell/stream"
	"gopkg.in/yaml.v3"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const usage = `usage: hoster-template [-config path] <command> [args]

commands:
  serve                          run the HTTP API
  plan <dir>                     print the deployment plan for a project
  deploy [-identity name] <dir>  deploy a project, streaming status as JSON lines
  version                        print version and exit
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// Parse command line flags
	fs := flag.NewFlagSet("hoster-template", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return ExitUsageError
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return ExitUsageError
	}
	command, rest := fs.Arg(0), fs.Args()[1:]

	// Handle version command
	if command == "version" {
		fmt.Fprintf(stdout, "hoster-template %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	// Load configuration
	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}

	switch command {
	case "serve":
		return runServe(ctx, cfg, stdout)
	case "plan":
		return runPlan(ctx, cfg, rest, stdout, stderr)
	case "deploy":
		return runDeploy(ctx, cfg, rest, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", command)
		fs.Usage()
		return ExitUsageError
	}
}

// =============================================================================
// Commands
// =============================================================================

func runServe(ctx context.Context, cfg *Config, logs io.Writer) int {
	logger := SetupLogger(cfg, logs)
	logger.Info("starting hoster-template",
		"version", Version,
		"database", cfg.Database.DSN,
		"projects_dir", cfg.ProjectsDir,
	)

	if err := os.MkdirAll(cfg.ProjectsDir, 0755); err != nil {
		return exitCode(logger, "failed to create projects directory", err)
	}

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return exitCode(logger, "failed to start", err)
	}
	defer app.Close()

	if err := NewServer(app).Start(ctx); err != nil {
		return exitCode(logger, "server error", err)
	}
	return ExitSuccess
}

// runPlan prints what deploy would generate. It needs neither Docker nor
// the database.
func runPlan(ctx context.Context, cfg *Config, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprint(stderr, usage)
		return ExitUsageError
	}
	root, err := filepath.Abs(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "invalid project path: %v\n", err)
		return ExitUsageError
	}

	logger := SetupLogger(cfg, stderr)
	runner := deploy.NewRunner(deploy.Options{Templates: templates(logger), Logger: logger})

	plan, err := runner.Plan(ctx, root)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", root, err)
		return ExitDeployFailed
	}

	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(plan); err != nil {
		fmt.Fprintf(stderr, "failed to encode plan: %v\n", err)
		return ExitConfigError
	}
	if err := enc.Close(); err != nil {
		fmt.Fprintf(stderr, "failed to encode plan: %v\n", err)
		return ExitConfigError
	}
	return ExitSuccess
}

// runDeploy deploys one project. Status events go to stdout, logs to stderr.
func runDeploy(ctx context.Context, cfg *Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("deploy", flag.ContinueOnError)
	fs.SetOutput(stderr)
	identity := fs.String("identity", currentUser(), "Identity the deployment belongs to")
	if err := fs.Parse(args); err != nil {
		return ExitUsageError
	}
	if fs.NArg() != 1 {
		fmt.Fprint(stderr, usage)
		return ExitUsageError
	}
	root, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "invalid project path: %v\n", err)
		return ExitUsageError
	}

	if field, msg := validation.ValidateIdentity(*identity); field != "" {
		fmt.Fprintf(stderr, "invalid -%s: %s\n", field, msg)
		return ExitUsageError
	}

	logger := SetupLogger(cfg, stderr)
	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return exitCode(logger, "failed to start", err)
	}
	defer app.Close()

	deployment, err := app.runner.Deploy(ctx, deploy.Request{
		Identity:    *identity,
		ProjectRoot: root,
		Stream:      stream.NewJSONLines(stdout),
	})
	if err != nil {
		return ExitDeployFailed
	}

	logger.Info("deployment finished", "deployment_id", deployment.ID, "status", string(deployment.Status))
	return ExitSuccess
}

// =============================================================================
// Helpers
// =============================================================================

// exitCode logs err and maps it to a process exit code.
func exitCode(logger *slog.Logger, msg string, err error) int {
	var sErr *ServerError
	if errors.As(err, &sErr) {
		logger.Error(msg,
			"error", sErr.Err,
			"operation", sErr.Op,
		)
		return sErr.ExitCode
	}
	logger.Error(msg, "error", err)
	return ExitConfigError
}

// currentUser is the default deploy identity.
func currentUser() string {
	for _, key := range []string{"USER", "USERNAME"} {
		if u := os.Getenv(key); u != "" {
			return u
		}
	}
	return "local"
}
