package nodejs

// =============================================================================
// Recognized File Names
// =============================================================================

// File names that drive detection and strategy selection. These must match
// the npm and yarn ecosystems exactly.
const (
	ManifestFile    = "package.json"
	YarnLockFile    = "yarn.lock"
	PackageLockFile = "package-lock.json"
	DockerfileName  = "Dockerfile"
)

// =============================================================================
// Project Context
// =============================================================================

// ProjectContext is a read-only view of one candidate project directory.
type ProjectContext struct {
	Root    string
	Entries []string
}

// NewProjectContext creates a ProjectContext. The entry slice is copied so
// later changes by the caller are not observed.
func NewProjectContext(root string, entries []string) ProjectContext {
	copied := make([]string, len(entries))
	copy(copied, entries)
	return ProjectContext{
		Root:    root,
		Entries: copied,
	}
}

// Has reports whether the listing contains name exactly.
func (p ProjectContext) Has(name string) bool {
	for _, e := range p.Entries {
		if e == name {
			return true
		}
	}
	return false
}
