package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Deployment Errors
// =============================================================================

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrMissingIdentity   = errors.New("identity is required")
	ErrMissingProject    = errors.New("project root is required")
)

// =============================================================================
// Deployment Status
// =============================================================================

type DeploymentStatus string

const (
	StatusPending  DeploymentStatus = "pending"
	StatusRunning  DeploymentStatus = "running"
	StatusFailed   DeploymentStatus = "failed"
	StatusReplaced DeploymentStatus = "replaced"
)

// =============================================================================
// Build and Container Descriptors
// =============================================================================

// Build is the result of building an image from a project.
type Build struct {
	Image string `json:"image"`
	Log   string `json:"log,omitempty"`
}

// PortMapping represents a port mapping.
type PortMapping struct {
	ContainerPort int    `json:"container_port"`
	HostPort      int    `json:"host_port"`
	Protocol      string `json:"protocol"` // tcp, udp
}

// Container describes a started container.
type Container struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Image string        `json:"image"`
	State string        `json:"state"`
	Ports []PortMapping `json:"ports,omitempty"`
}

// =============================================================================
// Deployment
// =============================================================================

// Deployment records one execution of a template against a project.
type Deployment struct {
	ID           string           `json:"id"`
	Identity     string           `json:"identity"`
	ProjectRoot  string           `json:"project_root"`
	Template     string           `json:"template"`
	Strategy     string           `json:"strategy,omitempty"`
	Status       DeploymentStatus `json:"status"`
	Container    *Container       `json:"container,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	BuildLog     string           `json:"build_log,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// NewDeployment creates a pending deployment record.
func NewDeployment(identity, projectRoot, template string) (*Deployment, error) {
	if identity == "" {
		return nil, ErrMissingIdentity
	}
	if projectRoot == "" {
		return nil, ErrMissingProject
	}

	now := time.Now().UTC()
	return &Deployment{
		ID:          uuid.New().String(),
		Identity:    identity,
		ProjectRoot: projectRoot,
		Template:    template,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// MarkRunning records the started container.
func (d *Deployment) MarkRunning(c Container) error {
	if err := ValidateTransition(d.Status, StatusRunning); err != nil {
		return err
	}
	d.Status = StatusRunning
	d.Container = &c
	d.ErrorMessage = ""
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkFailed records the failure message and build log, if any.
func (d *Deployment) MarkFailed(message, buildLog string) error {
	if err := ValidateTransition(d.Status, StatusFailed); err != nil {
		return err
	}
	d.Status = StatusFailed
	d.ErrorMessage = message
	d.BuildLog = buildLog
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkReplaced records that a newer deployment took over the project.
func (d *Deployment) MarkReplaced() error {
	if err := ValidateTransition(d.Status, StatusReplaced); err != nil {
		return err
	}
	d.Status = StatusReplaced
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// =============================================================================
// State Machine
// =============================================================================

// validTransitions defines the allowed state transitions.
var validTransitions = map[DeploymentStatus][]DeploymentStatus{
	StatusPending:  {StatusRunning, StatusFailed},
	StatusRunning:  {StatusReplaced},
	StatusFailed:   {}, // Terminal state
	StatusReplaced: {}, // Terminal state
}

// ValidateTransition checks if a status transition is valid.
func ValidateTransition(from, to DeploymentStatus) error {
	allowed, exists := validTransitions[from]
	if !exists {
		return ErrInvalidTransition
	}

	for _, s := range allowed {
		if s == to {
			return nil
		}
	}

	return ErrInvalidTransition
}
