package template

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/artpar/hoster-template/internal/core/nodejs"
)

// ReadProject lists the entries directly under root.
func ReadProject(root string) (nodejs.ProjectContext, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nodejs.ProjectContext{Root: root}, fmt.Errorf("failed to read project %s: %w", root, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return nodejs.NewProjectContext(root, names), nil
}

// DockerfilePath returns where the generated Dockerfile is written.
func DockerfilePath(root string) string {
	return filepath.Join(root, nodejs.DockerfileName)
}

// WriteDockerfile writes content to the project's Dockerfile, replacing any
// existing file.
func WriteDockerfile(root, content string) error {
	path := DockerfilePath(root)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// Plan
// =============================================================================

// Plan is a dry-run view of what ExecuteTemplate would generate.
type Plan struct {
	Template   string `json:"template" yaml:"template"`
	Project    string `json:"project" yaml:"project"`
	Match      string `json:"match" yaml:"match"`
	Strategy   string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Dockerfile string `json:"dockerfile,omitempty" yaml:"dockerfile,omitempty"`
}

// PlanProject reads root and reports the match and the Dockerfile that would
// be written. Nothing is written.
func PlanProject(root string) Plan {
	project, err := ReadProject(root)
	match := nodejs.Classify(project, err)

	plan := Plan{
		Template: Name,
		Project:  root,
		Match:    match.String(),
	}
	if !match.Matched() {
		return plan
	}

	strategy := nodejs.SelectStrategy(project)
	plan.Strategy = strategy.String()
	plan.Dockerfile = nodejs.GenerateDockerfile(strategy)
	return plan
}
