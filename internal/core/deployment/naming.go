package deployment

import (
	"fmt"
	"path"
	"strings"

	"github.com/artpar/hoster-template/internal/core/domain"
)

// =============================================================================
// Resource Naming Functions
// =============================================================================

// DefaultImagePrefix is used when no image prefix is configured.
const DefaultImagePrefix = "hoster"

// ProjectName derives a short name for a project from its identity and root.
// Pattern: {identity}-{base(projectRoot)}, slugified
//
// Example:
//
//	ProjectName("Alice", "/tmp/deploy/My Blog") // returns "alice-my-blog"
func ProjectName(identity, projectRoot string) string {
	folder := domain.Slugify(path.Base(strings.TrimRight(projectRoot, "/")))
	user := domain.Slugify(identity)
	switch {
	case user == "":
		return folder
	case folder == "":
		return user
	}
	return user + "-" + folder
}

// ImageRepository generates the repository part of the image reference.
// Pattern: {prefix}/{projectName}
//
// Example:
//
//	ImageRepository("hoster", "alice", "/tmp/blog") // returns "hoster/alice-blog"
func ImageRepository(prefix, identity, projectRoot string) string {
	if prefix == "" {
		prefix = DefaultImagePrefix
	}
	return fmt.Sprintf("%s/%s", prefix, ProjectName(identity, projectRoot))
}

// ImageTag generates a full image reference for one build.
// Only the first 12 characters of buildID are used.
//
// Example:
//
//	ImageTag("hoster/alice-blog", "550e8400-e29b-41d4") // returns "hoster/alice-blog:550e8400-e29"
func ImageTag(repository, buildID string) string {
	id := buildID
	if len(id) > 12 {
		id = id[:12]
	}
	return fmt.Sprintf("%s:%s", repository, id)
}

// ContainerName generates a container name for one deployment of a project.
// Pattern: {projectName}-{suffix}
//
// Example:
//
//	ContainerName("alice", "/tmp/blog", "a1b2c3") // returns "alice-blog-a1b2c3"
func ContainerName(identity, projectRoot, suffix string) string {
	return fmt.Sprintf("%s-%s", ProjectName(identity, projectRoot), suffix)
}
