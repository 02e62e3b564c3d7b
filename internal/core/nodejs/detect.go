package nodejs

// Match is the internal outcome of checking a project against this template.
type Match int

const (
	// MatchAbsent means the directory was read but has no manifest.
	MatchAbsent Match = iota
	// MatchFound means the manifest is present.
	MatchFound
	// MatchUnreadable means the directory could not be listed.
	MatchUnreadable
)

// String returns the match name used in logs.
func (m Match) String() string {
	switch m {
	case MatchFound:
		return "found"
	case MatchUnreadable:
		return "unreadable"
	default:
		return "absent"
	}
}

// Matched collapses the match to the boolean the host platform expects.
// Unreadable directories never match.
func (m Match) Matched() bool {
	return m == MatchFound
}

// Matches reports whether the project listing contains the manifest file.
func Matches(p ProjectContext) bool {
	return p.Has(ManifestFile)
}

// Classify turns a directory read into a Match. A non-nil readErr always
// yields MatchUnreadable regardless of the listing.
func Classify(p ProjectContext, readErr error) Match {
	if readErr != nil {
		return MatchUnreadable
	}
	if Matches(p) {
		return MatchFound
	}
	return MatchAbsent
}
