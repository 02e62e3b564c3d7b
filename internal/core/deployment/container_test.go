package deployment

import (
	"testing"

	"github.com/artpar/hoster-template/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContainerPlan_Defaults(t *testing.T) {
	plan := BuildContainerPlan(BuildContainerPlanParams{
		Identity:    "alice",
		ProjectRoot: "/tmp/blog",
		Template:    "exoframe-template-arm32v7-nodejs",
		Image:       "hoster/alice-blog:abc",
		NameSuffix:  "abc",
		Ports:       []int{80, 443},
	})

	assert.Equal(t, "alice-blog-abc", plan.Name)
	assert.Equal(t, "hoster/alice-blog:abc", plan.Image)
	assert.Equal(t, "true", plan.Labels[LabelManaged])
	assert.Equal(t, "alice", plan.Labels[LabelIdentity])
	assert.Equal(t, "/tmp/blog", plan.Labels[LabelProject])
	assert.Equal(t, "exoframe-template-arm32v7-nodejs", plan.Labels[LabelTemplate])
	assert.Equal(t, "on-failure", plan.RestartPolicy.Name)
	assert.Equal(t, 2, plan.RestartPolicy.MaximumRetryCount)

	require.Len(t, plan.Ports, 2)
	assert.Equal(t, PortPlan{ContainerPort: 80, Protocol: "tcp"}, plan.Ports[0])
	assert.Equal(t, PortPlan{ContainerPort: 443, Protocol: "tcp"}, plan.Ports[1])
}

func TestBuildContainerPlan_CustomRestartPolicy(t *testing.T) {
	plan := BuildContainerPlan(BuildContainerPlanParams{
		Identity:      "alice",
		ProjectRoot:   "/tmp/blog",
		RestartPolicy: "unless-stopped",
	})

	assert.Equal(t, "unless-stopped", plan.RestartPolicy.Name)
	assert.Zero(t, plan.RestartPolicy.MaximumRetryCount)
}

func TestBuildContainerPlan_NoPorts(t *testing.T) {
	plan := BuildContainerPlan(BuildContainerPlanParams{Identity: "alice", ProjectRoot: "/tmp/blog"})
	assert.Empty(t, plan.Ports)
}

func TestConvertPorts_DefaultProtocol(t *testing.T) {
	got := ConvertPorts([]PortBinding{{ContainerPort: 80, HostPort: 32768}})
	assert.Equal(t, []domain.PortMapping{{ContainerPort: 80, HostPort: 32768, Protocol: "tcp"}}, got)
}

func TestConvertPorts_Empty(t *testing.T) {
	assert.Equal(t, []domain.PortMapping{}, ConvertPorts(nil))
}
