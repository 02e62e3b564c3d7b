package docker

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/artpar/hoster-template/internal/core/domain"
)

// =============================================================================
// Stub Client
// =============================================================================

type stubClient struct {
	mu sync.Mutex

	buildOutput string
	buildErr    error
	createErr   error
	startErr    error
	inspectErr  error
	removeErr   error
	stopErr     error
	listErr     error
	info        *ContainerInfo
	listed      []ContainerInfo

	buildDir  string
	buildOpts BuildOptions
	created   []ContainerSpec
	started   []string
	stopped   []string
	removed   []string
	listOpts  []ListOptions
}

func (c *stubClient) BuildImage(ctx context.Context, contextDir string, opts BuildOptions) (io.ReadCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buildDir = contextDir
	c.buildOpts = opts
	if c.buildErr != nil {
		return nil, c.buildErr
	}
	return io.NopCloser(strings.NewReader(c.buildOutput)), nil
}

func (c *stubClient) CreateContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.createErr != nil {
		return "", c.createErr
	}
	c.created = append(c.created, spec)
	return "new-container-id-0123456789", nil
}

func (c *stubClient) StartContainer(ctx context.Context, containerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = append(c.started, containerID)
	return c.startErr
}

func (c *stubClient) StopContainer(ctx context.Context, containerID string, timeout *time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = append(c.stopped, containerID)
	return c.stopErr
}

func (c *stubClient) RemoveContainer(ctx context.Context, containerID string, opts RemoveOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed = append(c.removed, containerID)
	return c.removeErr
}

func (c *stubClient) InspectContainer(ctx context.Context, containerID string) (*ContainerInfo, error) {
	if c.inspectErr != nil {
		return nil, c.inspectErr
	}
	if c.info != nil {
		return c.info, nil
	}
	return &ContainerInfo{ID: containerID, State: "running"}, nil
}

func (c *stubClient) ListContainers(ctx context.Context, opts ListOptions) ([]ContainerInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listOpts = append(c.listOpts, opts)
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.listed, nil
}

func (c *stubClient) Ping(ctx context.Context) error { return nil }
func (c *stubClient) Close() error                   { return nil }

// =============================================================================
// Recording Stream
// =============================================================================

type recordingStream struct {
	events []domain.StatusEvent
	closed bool
}

func (s *recordingStream) Write(event domain.StatusEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *recordingStream) Close() error {
	s.closed = true
	return nil
}

func (s *recordingStream) messages() []string {
	var result []string
	for _, e := range s.events {
		result = append(result, e.Message)
	}
	return result
}
