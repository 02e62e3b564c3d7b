package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envPrefix is prepended to every environment override, e.g.
// HOSTER_TEMPLATE_SERVER_PORT.
const envPrefix = "HOSTER_TEMPLATE"

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	DataDir     string         `mapstructure:"data_dir"`
	ProjectsDir string         `mapstructure:"projects_dir"` // API deploys only from inside it; defaults to <data_dir>/projects
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Docker      DockerConfig   `mapstructure:"docker"`
	Log         LogConfig      `mapstructure:"log"`
	Metrics     MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"` // builds stream for minutes; 0 disables
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"` // defaults to <data_dir>/hoster-template.db
}

// DockerConfig holds Docker client and container configuration.
type DockerConfig struct {
	Host          string        `mapstructure:"host"`
	ImagePrefix   string        `mapstructure:"image_prefix"`
	Platform      string        `mapstructure:"platform"`
	RestartPolicy string        `mapstructure:"restart_policy"`
	PublishPorts  bool          `mapstructure:"publish_ports"`
	StopTimeout   time.Duration `mapstructure:"stop_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds Prometheus configuration.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

var restartPolicies = map[string]bool{
	"no":             true,
	"always":         true,
	"on-failure":     true,
	"unless-stopped": true,
}

// Validate checks values that viper cannot type-check.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !restartPolicies[c.Docker.RestartPolicy] {
		return fmt.Errorf("docker.restart_policy %q is not one of no, always, on-failure, unless-stopped", c.Docker.RestartPolicy)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is empty")
	}
	if !filepath.IsAbs(c.ProjectsDir) {
		return fmt.Errorf("projects_dir must be an absolute path, got %q", c.ProjectsDir)
	}
	return nil
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("data_dir", "./data")
	v.SetDefault("projects_dir", "")
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("database.dsn", "")
	v.SetDefault("docker.host", "")
	v.SetDefault("docker.image_prefix", "hoster")
	v.SetDefault("docker.platform", "linux/arm/v7")
	v.SetDefault("docker.restart_policy", "on-failure")
	v.SetDefault("docker.publish_ports", true)
	v.SetDefault("docker.stop_timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "hoster")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = filepath.Join(cfg.DataDir, "hoster-template.db")
	}
	if cfg.ProjectsDir == "" {
		cfg.ProjectsDir = filepath.Join(cfg.DataDir, "projects")
	}
	projectsDir, err := filepath.Abs(cfg.ProjectsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve projects_dir: %w", err)
	}
	cfg.ProjectsDir = projectsDir

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format,
// writing to w.
func SetupLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}
