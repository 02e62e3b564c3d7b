package docker

import (
	"context"
	"errors"
	"testing"

	coredeployment "github.com/artpar/hoster-template/internal/core/deployment"
	"github.com/artpar/hoster-template/internal/core/domain"
	"github.com/artpar/hoster-template/internal/shell/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRequest(existing ...domain.Container) template.StartRequest {
	return template.StartRequest{
		Build:       domain.Build{Image: "hoster/alice-blog:123456789012"},
		Identity:    "alice",
		ProjectRoot: "/srv/blog",
		Existing:    existing,
		Stream:      &recordingStream{},
	}
}

func TestContainerStarter_Start(t *testing.T) {
	cli := &stubClient{info: &ContainerInfo{
		ID:    "new-container-id-0123456789",
		Name:  "alice-blog-abcd1234",
		State: "running",
		Ports: []PortBinding{{ContainerPort: 80, HostPort: 32768}},
	}}
	starter := NewContainerStarter(cli, nil, StarterConfig{
		Template: "exoframe-template-arm32v7-nodejs",
		Ports:    []int{80, 443},
	})

	c, err := starter.Start(context.Background(), startRequest())

	require.NoError(t, err)
	assert.Equal(t, "new-container-id-0123456789", c.ID)
	assert.Equal(t, "alice-blog-abcd1234", c.Name)
	assert.Equal(t, "hoster/alice-blog:123456789012", c.Image)
	assert.Equal(t, "running", c.State)
	assert.Equal(t, []domain.PortMapping{{ContainerPort: 80, HostPort: 32768, Protocol: "tcp"}}, c.Ports)

	require.Len(t, cli.created, 1)
	spec := cli.created[0]
	assert.Equal(t, "hoster/alice-blog:123456789012", spec.Image)
	assert.Contains(t, spec.Name, "alice-blog-")
	assert.Equal(t, "exoframe-template-arm32v7-nodejs", spec.Labels[coredeployment.LabelTemplate])
	assert.Equal(t, "on-failure", spec.RestartPolicy.Name)
	require.Len(t, spec.Ports, 2)
	assert.Equal(t, 443, spec.Ports[1].ContainerPort)
	assert.Empty(t, cli.removed)
}

func TestContainerStarter_Start_ReplacesExisting(t *testing.T) {
	cli := &stubClient{}
	starter := NewContainerStarter(cli, nil, StarterConfig{})

	_, err := starter.Start(context.Background(), startRequest(
		domain.Container{ID: "old-1"},
		domain.Container{ID: "old-2"},
	))

	require.NoError(t, err)
	assert.Equal(t, []string{"old-1", "old-2"}, cli.stopped)
	assert.Equal(t, []string{"old-1", "old-2"}, cli.removed)
}

func TestContainerStarter_Start_IgnoresMissingExisting(t *testing.T) {
	cli := &stubClient{
		stopErr:   NewDockerError("StopContainer", "container", "gone", "container not found", ErrContainerNotFound),
		removeErr: NewDockerError("RemoveContainer", "container", "gone", "container not found", ErrContainerNotFound),
	}
	starter := NewContainerStarter(cli, nil, StarterConfig{})

	c, err := starter.Start(context.Background(), startRequest(domain.Container{ID: "gone"}))

	require.NoError(t, err)
	assert.Equal(t, "new-container-id-0123456789", c.ID)
}

func TestContainerStarter_Start_RetiresLabelledContainers(t *testing.T) {
	managed := func(id, identity string) ContainerInfo {
		return ContainerInfo{ID: id, Labels: map[string]string{
			coredeployment.LabelManaged:  "true",
			coredeployment.LabelIdentity: identity,
			coredeployment.LabelProject:  "/srv/blog",
		}}
	}
	cli := &stubClient{listed: []ContainerInfo{
		managed("old-1", "alice"),
		managed("stray", "alice"),
		managed("bob-blog", "bob"),
		managed("new-container-id-0123456789", "alice"),
		{ID: "unmanaged", Labels: map[string]string{coredeployment.LabelProject: "/srv/blog"}},
	}}
	starter := NewContainerStarter(cli, nil, StarterConfig{})

	_, err := starter.Start(context.Background(), startRequest(domain.Container{ID: "old-1"}))

	require.NoError(t, err)
	assert.Equal(t, []string{"old-1", "stray"}, cli.removed)
	require.Len(t, cli.listOpts, 1)
	assert.True(t, cli.listOpts[0].All)
	assert.Equal(t, map[string]string{"label": coredeployment.LabelProject + "=/srv/blog"}, cli.listOpts[0].Filters)
}

func TestContainerStarter_Start_ListFailsStillReplacesExisting(t *testing.T) {
	cli := &stubClient{listErr: errors.New("daemon busy")}
	starter := NewContainerStarter(cli, nil, StarterConfig{})

	c, err := starter.Start(context.Background(), startRequest(domain.Container{ID: "old-1"}))

	require.NoError(t, err)
	assert.Equal(t, "new-container-id-0123456789", c.ID)
	assert.Equal(t, []string{"old-1"}, cli.removed)
}

func TestContainerStarter_Start_CreateFails(t *testing.T) {
	cli := &stubClient{createErr: ErrContainerAlreadyExists}
	starter := NewContainerStarter(cli, nil, StarterConfig{})

	_, err := starter.Start(context.Background(), startRequest(domain.Container{ID: "old-1"}))

	assert.ErrorIs(t, err, ErrContainerAlreadyExists)
	assert.Empty(t, cli.started)
	assert.Empty(t, cli.removed)
}

func TestContainerStarter_Start_StartFailsCleansUp(t *testing.T) {
	cli := &stubClient{startErr: ErrPortAlreadyAllocated}
	starter := NewContainerStarter(cli, nil, StarterConfig{})

	_, err := starter.Start(context.Background(), startRequest(domain.Container{ID: "old-1"}))

	assert.ErrorIs(t, err, ErrPortAlreadyAllocated)
	assert.ErrorContains(t, err, "a published host port is already in use by another container")
	// Only the new container is removed; the old one keeps running
	assert.Equal(t, []string{"new-container-id-0123456789"}, cli.removed)
	assert.Empty(t, cli.stopped)
}

func TestContainerStarter_Start_OtherStartFailure(t *testing.T) {
	cli := &stubClient{startErr: errors.New("exec format error")}
	starter := NewContainerStarter(cli, nil, StarterConfig{})

	_, err := starter.Start(context.Background(), startRequest())

	assert.ErrorContains(t, err, "exec format error")
	assert.NotContains(t, err.Error(), "host port")
	assert.Equal(t, []string{"new-container-id-0123456789"}, cli.removed)
}

func TestContainerStarter_Start_InspectFailsCleansUp(t *testing.T) {
	cli := &stubClient{inspectErr: errors.New("daemon hung up")}
	starter := NewContainerStarter(cli, nil, StarterConfig{})

	_, err := starter.Start(context.Background(), startRequest())

	assert.ErrorContains(t, err, "daemon hung up")
	assert.Equal(t, []string{"new-container-id-0123456789"}, cli.removed)
}

func TestContainerStarter_Start_NoImage(t *testing.T) {
	cli := &stubClient{}
	starter := NewContainerStarter(cli, nil, StarterConfig{})

	req := startRequest()
	req.Build.Image = ""
	_, err := starter.Start(context.Background(), req)

	assert.Error(t, err)
	assert.Empty(t, cli.created)
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "0123456789ab", shortID("0123456789abcdef"))
	assert.Equal(t, "abc", shortID("abc"))
}
