package docker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coredeployment "github.com/artpar/hoster-template/internal/core/deployment"
	"github.com/artpar/hoster-template/internal/core/domain"
	"github.com/artpar/hoster-template/internal/shell/template"
	"github.com/google/uuid"
)

// =============================================================================
// Container Starter
// =============================================================================

// StarterConfig configures the ContainerStarter.
type StarterConfig struct {
	Template      string        // written to the template label
	RestartPolicy string        // "on-failure" if empty
	Ports         []int         // container ports published on auto-assigned host ports
	StopTimeout   time.Duration // grace period when replacing existing containers
}

// ContainerStarter runs a built image as a container and retires the
// containers it replaces. It implements template.Starter.
type ContainerStarter struct {
	docker Client
	logger *slog.Logger
	config StarterConfig
}

// NewContainerStarter creates a new container starter.
func NewContainerStarter(docker Client, logger *slog.Logger, config StarterConfig) *ContainerStarter {
	if logger == nil {
		logger = slog.Default()
	}
	if config.StopTimeout == 0 {
		config.StopTimeout = 10 * time.Second
	}
	return &ContainerStarter{
		docker: docker,
		logger: logger,
		config: config,
	}
}

// Start creates and starts a container for req.Build. Replaced containers
// are removed only after the new one is running.
func (s *ContainerStarter) Start(ctx context.Context, req template.StartRequest) (domain.Container, error) {
	if req.Build.Image == "" {
		return domain.Container{}, errors.New("build has no image")
	}

	plan := coredeployment.BuildContainerPlan(coredeployment.BuildContainerPlanParams{
		Identity:      req.Identity,
		ProjectRoot:   req.ProjectRoot,
		Template:      s.config.Template,
		Image:         req.Build.Image,
		NameSuffix:    uuid.New().String()[:8],
		Ports:         s.config.Ports,
		RestartPolicy: s.config.RestartPolicy,
	})

	// 1. Create container
	containerID, err := s.docker.CreateContainer(ctx, containerSpecFromPlan(plan))
	if err != nil {
		return domain.Container{}, fmt.Errorf("failed to create container %s: %w", plan.Name, err)
	}
	s.logger.Debug("created container", "container", plan.Name, "container_id", shortID(containerID))

	// 2. Start it
	if err := s.docker.StartContainer(ctx, containerID); err != nil {
		s.cleanup(ctx, containerID)
		if errors.Is(err, ErrPortAlreadyAllocated) {
			return domain.Container{}, fmt.Errorf("failed to start container %s: a published host port is already in use by another container: %w", plan.Name, err)
		}
		return domain.Container{}, fmt.Errorf("failed to start container %s: %w", plan.Name, err)
	}

	// 3. Read back the assigned ports
	info, err := s.docker.InspectContainer(ctx, containerID)
	if err != nil {
		s.cleanup(ctx, containerID)
		return domain.Container{}, fmt.Errorf("failed to inspect container %s: %w", plan.Name, err)
	}

	// 4. Retire the containers this one replaces
	replaced := s.replaced(ctx, req, containerID)
	for _, id := range replaced {
		s.retire(ctx, id)
	}

	s.logger.Info("container started",
		"container", plan.Name,
		"container_id", shortID(containerID),
		"replaced", len(replaced),
	)

	return domain.Container{
		ID:    info.ID,
		Name:  info.Name,
		Image: req.Build.Image,
		State: info.State,
		Ports: coredeployment.ConvertPorts(toCorePorts(info.Ports)),
	}, nil
}

// replaced returns the IDs of the containers the new one replaces: those the
// host passed in req.Existing plus any container labelled with the same
// identity and project. The new container is never included.
func (s *ContainerStarter) replaced(ctx context.Context, req template.StartRequest, newID string) []string {
	seen := map[string]bool{newID: true, "": true}
	var ids []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, c := range req.Existing {
		add(c.ID)
	}

	labelled, err := s.docker.ListContainers(ctx, ListOptions{
		All:     true,
		Filters: map[string]string{"label": coredeployment.LabelProject + "=" + req.ProjectRoot},
	})
	if err != nil {
		s.logger.Warn("failed to list project containers", "project", req.ProjectRoot, "error", err)
		return ids
	}
	for _, c := range labelled {
		if c.Labels[coredeployment.LabelManaged] == "true" && c.Labels[coredeployment.LabelIdentity] == req.Identity {
			add(c.ID)
		}
	}
	return ids
}

// retire stops and removes a replaced container. Failures are logged only;
// the new deployment is already running.
func (s *ContainerStarter) retire(ctx context.Context, id string) {
	timeout := s.config.StopTimeout
	if err := s.docker.StopContainer(ctx, id, &timeout); err != nil &&
		!errors.Is(err, ErrContainerNotFound) && !errors.Is(err, ErrContainerNotRunning) {
		s.logger.Warn("failed to stop replaced container", "container_id", shortID(id), "error", err)
	}
	if err := s.docker.RemoveContainer(ctx, id, RemoveOptions{Force: true}); err != nil &&
		!errors.Is(err, ErrContainerNotFound) {
		s.logger.Warn("failed to remove replaced container", "container_id", shortID(id), "error", err)
		return
	}
	s.logger.Debug("removed replaced container", "container_id", shortID(id))
}

// cleanup removes a container created by a failed start.
func (s *ContainerStarter) cleanup(ctx context.Context, containerID string) {
	if err := s.docker.RemoveContainer(ctx, containerID, RemoveOptions{Force: true}); err != nil {
		s.logger.Warn("failed to clean up container", "container_id", shortID(containerID), "error", err)
	}
}

// =============================================================================
// Conversions
// =============================================================================

func containerSpecFromPlan(plan coredeployment.ContainerPlan) ContainerSpec {
	spec := ContainerSpec{
		Name:   plan.Name,
		Image:  plan.Image,
		Labels: plan.Labels,
		RestartPolicy: RestartPolicy{
			Name:              plan.RestartPolicy.Name,
			MaximumRetryCount: plan.RestartPolicy.MaximumRetryCount,
		},
	}
	for _, p := range plan.Ports {
		spec.Ports = append(spec.Ports, PortBinding{
			ContainerPort: p.ContainerPort,
			HostPort:      p.HostPort,
			Protocol:      p.Protocol,
			HostIP:        p.HostIP,
		})
	}
	return spec
}

func toCorePorts(ports []PortBinding) []coredeployment.PortBinding {
	result := make([]coredeployment.PortBinding, 0, len(ports))
	for _, p := range ports {
		result = append(result, coredeployment.PortBinding{
			ContainerPort: p.ContainerPort,
			HostPort:      p.HostPort,
			Protocol:      p.Protocol,
			HostIP:        p.HostIP,
		})
	}
	return result
}

// shortID truncates a container ID for logs.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
