package deployment

// =============================================================================
// Container Plan Types
// =============================================================================

// ContainerPlan represents a planned container configuration.
// This is the pure output of planning, ready for the shell to execute.
type ContainerPlan struct {
	Name          string
	Image         string
	Labels        map[string]string
	Ports         []PortPlan
	RestartPolicy RestartPolicyPlan
}

// PortPlan represents a planned port binding.
type PortPlan struct {
	ContainerPort int
	HostPort      int
	Protocol      string
	HostIP        string
}

// RestartPolicyPlan represents a restart policy.
type RestartPolicyPlan struct {
	Name              string
	MaximumRetryCount int
}

// =============================================================================
// Builder Parameter Types
// =============================================================================

// BuildContainerPlanParams contains all inputs for building a container plan.
type BuildContainerPlanParams struct {
	Identity      string
	ProjectRoot   string
	Template      string
	Image         string
	NameSuffix    string
	Ports         []int
	RestartPolicy string
}

// =============================================================================
// Container Labels
// =============================================================================

// Label keys used to identify containers started by a template.
const (
	LabelManaged  = "com.hoster.managed"
	LabelIdentity = "com.hoster.identity"
	LabelProject  = "com.hoster.project"
	LabelTemplate = "com.hoster.template"
)
