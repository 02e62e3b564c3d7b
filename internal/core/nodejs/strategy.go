package nodejs

// LockStrategy selects how dependencies are installed in the image.
type LockStrategy int

const (
	// StrategyUnpinned runs a plain npm install with no lock file.
	StrategyUnpinned LockStrategy = iota
	// StrategyPackageLock copies package-lock.json and runs npm ci.
	StrategyPackageLock
	// StrategyYarnLock copies yarn.lock and installs with yarn.
	StrategyYarnLock
)

// String returns the strategy name used in logs, records and plans.
func (s LockStrategy) String() string {
	switch s {
	case StrategyYarnLock:
		return "yarn"
	case StrategyPackageLock:
		return "npm-ci"
	default:
		return "npm-install"
	}
}

// SelectStrategy picks the install strategy for a project.
// yarn.lock is checked before package-lock.json, so a project carrying both
// installs with yarn.
func SelectStrategy(p ProjectContext) LockStrategy {
	switch {
	case p.Has(YarnLockFile):
		return StrategyYarnLock
	case p.Has(PackageLockFile):
		return StrategyPackageLock
	default:
		return StrategyUnpinned
	}
}
