package deployment

// =============================================================================
// Container Plan Building Functions
// =============================================================================

// DefaultRestartPolicy is applied when the caller does not choose one.
const DefaultRestartPolicy = "on-failure"

// defaultMaxRetries bounds on-failure restarts.
const defaultMaxRetries = 2

// BuildContainerPlan builds a ContainerPlan for a freshly built image.
//
// The function:
//   - Generates the container name using ContainerName()
//   - Labels the container with identity, project and template
//   - Publishes every exposed port on an auto-assigned host port
//   - Maps the restart policy to Docker format
func BuildContainerPlan(params BuildContainerPlanParams) ContainerPlan {
	policy := params.RestartPolicy
	if policy == "" {
		policy = DefaultRestartPolicy
	}

	plan := ContainerPlan{
		Name:  ContainerName(params.Identity, params.ProjectRoot, params.NameSuffix),
		Image: params.Image,
		Labels: map[string]string{
			LabelManaged:  "true",
			LabelIdentity: params.Identity,
			LabelProject:  params.ProjectRoot,
			LabelTemplate: params.Template,
		},
		Ports:         PublishPorts(params.Ports),
		RestartPolicy: RestartPolicyPlan{Name: policy},
	}

	if policy == "on-failure" {
		plan.RestartPolicy.MaximumRetryCount = defaultMaxRetries
	}

	return plan
}
