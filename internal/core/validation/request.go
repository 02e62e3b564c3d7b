package validation

import (
	"path/filepath"
	"strings"

	"github.com/artpar/hoster-template/internal/core/domain"
)

// =============================================================================
// Request Validation Functions
// =============================================================================

// maxIdentityLength bounds identities so derived container names stay short.
const maxIdentityLength = 64

// ValidateProjectRoot checks that a project root is a clean absolute path.
// When projectsDir is set the root must lie strictly inside it.
//
// Example:
//
//	field, msg := ValidateProjectRoot("/srv/../etc", "/srv") // "project_root", "project_root must be a clean path"
func ValidateProjectRoot(projectRoot, projectsDir string) (field, message string) {
	if projectRoot == "" {
		return "project_root", "project_root is required"
	}
	if strings.ContainsRune(projectRoot, 0) {
		return "project_root", "project_root contains a NUL byte"
	}
	if !filepath.IsAbs(projectRoot) {
		return "project_root", "project_root must be an absolute path"
	}
	if filepath.Clean(projectRoot) != projectRoot {
		return "project_root", "project_root must be a clean path"
	}
	if projectsDir != "" && !IsWithin(projectsDir, projectRoot) {
		return "project_root", "project_root must be inside the projects directory"
	}
	return "", ""
}

// IsWithin reports whether path lies strictly inside dir. Both are compared
// lexically after cleaning.
func IsWithin(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ValidateIdentity checks that an identity can name containers and images.
func ValidateIdentity(identity string) (field, message string) {
	if identity == "" {
		return "identity", "identity is required"
	}
	if len(identity) > maxIdentityLength {
		return "identity", "identity must be at most 64 characters"
	}
	if domain.Slugify(identity) == "" {
		return "identity", "identity must contain a letter or digit"
	}
	return "", ""
}

// ValidateDeployRequest validates the fields of a deployment request.
func ValidateDeployRequest(identity, projectRoot, projectsDir string) (field, message string) {
	if field, msg := ValidateProjectRoot(projectRoot, projectsDir); field != "" {
		return field, msg
	}
	return ValidateIdentity(identity)
}
