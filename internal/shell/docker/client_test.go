package docker

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	coredeployment "github.com/artpar/hoster-template/internal/core/deployment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func skipIfNoDocker(t *testing.T) Client {
	t.Helper()
	cli, err := NewDockerClient("")
	if err != nil {
		t.Skip("Docker not available:", err)
	}
	if err := cli.Ping(context.Background()); err != nil {
		cli.Close()
		t.Skip("Docker not reachable:", err)
	}
	return cli
}

func cleanupContainer(t *testing.T, cli Client, containerID string) {
	t.Helper()
	ctx := context.Background()
	timeout := 5 * time.Second
	cli.StopContainer(ctx, containerID, &timeout)
	cli.RemoveContainer(ctx, containerID, RemoveOptions{Force: true, RemoveVolumes: true})
}

// Test container name prefix to identify test containers
const testPrefix = "hoster-template-test-"

// =============================================================================
// Connection Tests
// =============================================================================

func TestPing_Success(t *testing.T) {
	cli := skipIfNoDocker(t)
	defer cli.Close()

	err := cli.Ping(context.Background())
	assert.NoError(t, err)
}

// =============================================================================
// Container Tests
// =============================================================================

func TestCreateContainer_WithLabelsAndPorts(t *testing.T) {
	cli := skipIfNoDocker(t)
	defer cli.Close()
	ctx := context.Background()

	spec := ContainerSpec{
		Name:  testPrefix + "labels-ports",
		Image: "alpine:latest",
		Labels: map[string]string{
			coredeployment.LabelManaged: "true",
			coredeployment.LabelProject: "/srv/app",
		},
		Ports: []PortBinding{
			{ContainerPort: 80, HostPort: 0, Protocol: "tcp"},
		},
		RestartPolicy: RestartPolicy{Name: "on-failure", MaximumRetryCount: 2},
	}

	containerID, err := cli.CreateContainer(ctx, spec)
	require.NoError(t, err)
	defer cleanupContainer(t, cli, containerID)

	info, err := cli.InspectContainer(ctx, containerID)
	require.NoError(t, err)
	assert.Equal(t, spec.Name, info.Name)
	assert.Equal(t, "true", info.Labels[coredeployment.LabelManaged])
	assert.Equal(t, "/srv/app", info.Labels[coredeployment.LabelProject])
	assert.Equal(t, "created", info.State)
}

func TestCreateContainer_DuplicateName(t *testing.T) {
	cli := skipIfNoDocker(t)
	defer cli.Close()
	ctx := context.Background()

	spec := ContainerSpec{
		Name:  testPrefix + "duplicate",
		Image: "alpine:latest",
	}

	containerID, err := cli.CreateContainer(ctx, spec)
	require.NoError(t, err)
	defer cleanupContainer(t, cli, containerID)

	_, err = cli.CreateContainer(ctx, spec)
	assert.ErrorIs(t, err, ErrContainerAlreadyExists)
}

func TestContainerOperations_NotFound(t *testing.T) {
	cli := skipIfNoDocker(t)
	defer cli.Close()
	ctx := context.Background()

	err := cli.StartContainer(ctx, "nonexistent-container-id")
	assert.ErrorIs(t, err, ErrContainerNotFound)

	err = cli.RemoveContainer(ctx, "nonexistent-container-id", RemoveOptions{})
	assert.ErrorIs(t, err, ErrContainerNotFound)

	_, err = cli.InspectContainer(ctx, "nonexistent-container-id")
	assert.ErrorIs(t, err, ErrContainerNotFound)
}

func TestListContainers_WithFilter(t *testing.T) {
	cli := skipIfNoDocker(t)
	defer cli.Close()
	ctx := context.Background()

	spec := ContainerSpec{
		Name:   testPrefix + "filtered",
		Image:  "alpine:latest",
		Labels: map[string]string{coredeployment.LabelIdentity: "list-filter-test"},
	}
	containerID, err := cli.CreateContainer(ctx, spec)
	require.NoError(t, err)
	defer cleanupContainer(t, cli, containerID)

	containers, err := cli.ListContainers(ctx, ListOptions{
		All:     true,
		Filters: map[string]string{"label": coredeployment.LabelIdentity + "=list-filter-test"},
	})
	require.NoError(t, err)
	require.Len(t, containers, 1)
	assert.Equal(t, containerID, containers[0].ID)
}

// =============================================================================
// Image Tests
// =============================================================================

func TestBuildImage_StreamsOutput(t *testing.T) {
	cli := skipIfNoDocker(t)
	defer cli.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM scratch\nLABEL test=true\n"), 0644))

	output, err := cli.BuildImage(context.Background(), dir, BuildOptions{Tag: testPrefix + "build:latest"})
	require.NoError(t, err)
	defer output.Close()

	data, err := io.ReadAll(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stream")
}

// =============================================================================
// Error Tests
// =============================================================================

func TestDockerError_Error(t *testing.T) {
	// With all fields
	err := NewDockerError("CreateContainer", "container", "abc123", "failed to create", ErrContainerAlreadyExists)
	assert.Equal(t, "CreateContainer container abc123: failed to create", err.Error())

	// Without ID
	err = NewDockerError("ListContainers", "container", "", "connection failed", ErrConnectionFailed)
	assert.Equal(t, "ListContainers container: connection failed", err.Error())

	// Without entity
	err = NewDockerError("Ping", "", "", "connection refused", nil)
	assert.Equal(t, "Ping: connection refused", err.Error())
}

func TestDockerError_Unwrap(t *testing.T) {
	err := NewDockerError("CreateContainer", "container", "abc123", "already exists", ErrContainerAlreadyExists)
	assert.ErrorIs(t, err, ErrContainerAlreadyExists)
}

func TestParsePort(t *testing.T) {
	assert.Equal(t, 8080, parsePort("8080"))
	assert.Equal(t, 0, parsePort(""))
	assert.Equal(t, 0, parsePort("abc"))
}
