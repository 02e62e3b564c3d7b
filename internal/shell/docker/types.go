// Package docker provides a Docker client and the build and start
// collaborators templates deploy through.
package docker

import (
	"context"
	"io"
	"time"
)

// =============================================================================
// Container Types
// =============================================================================

// ContainerSpec defines the specification for creating a container.
type ContainerSpec struct {
	Name          string
	Image         string
	Labels        map[string]string
	Ports         []PortBinding
	RestartPolicy RestartPolicy
}

// PortBinding defines a port mapping.
type PortBinding struct {
	ContainerPort int
	HostPort      int    // 0 for auto-assign
	Protocol      string // "tcp" or "udp"
	HostIP        string // "" for 0.0.0.0
}

// RestartPolicy defines the container restart policy.
type RestartPolicy struct {
	Name              string // "no", "always", "on-failure", "unless-stopped"
	MaximumRetryCount int
}

// =============================================================================
// Container Info
// =============================================================================

// ContainerInfo contains information about a container.
type ContainerInfo struct {
	ID     string
	Name   string
	Image  string
	State  string // "running", "exited", "created", etc.
	Ports  []PortBinding
	Labels map[string]string
}

// =============================================================================
// Options
// =============================================================================

// BuildOptions defines options for building an image.
type BuildOptions struct {
	Tag        string
	Dockerfile string // relative to the context dir, "Dockerfile" if empty
	Platform   string // e.g., "linux/arm/v7"
	Labels     map[string]string
	Excludes   []string // paths left out of the build context
}

// RemoveOptions defines options for removing containers.
type RemoveOptions struct {
	Force         bool
	RemoveVolumes bool
}

// ListOptions defines options for listing containers.
type ListOptions struct {
	All     bool              // Include stopped containers
	Filters map[string]string // e.g., {"label": "com.hoster.project=/srv/app"}
}

// =============================================================================
// Client Interface
// =============================================================================

// Client defines the Docker client interface.
type Client interface {
	// Image operations
	BuildImage(ctx context.Context, contextDir string, opts BuildOptions) (io.ReadCloser, error)

	// Container operations
	CreateContainer(ctx context.Context, spec ContainerSpec) (containerID string, err error)
	StartContainer(ctx context.Context, containerID string) error
	StopContainer(ctx context.Context, containerID string, timeout *time.Duration) error
	RemoveContainer(ctx context.Context, containerID string, opts RemoveOptions) error
	InspectContainer(ctx context.Context, containerID string) (*ContainerInfo, error)
	ListContainers(ctx context.Context, opts ListOptions) ([]ContainerInfo, error)

	// Health operations
	Ping(ctx context.Context) error
	Close() error
}
