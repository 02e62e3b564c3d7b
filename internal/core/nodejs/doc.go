// Package nodejs provides the pure decision logic of the Node.js template.
//
// This package contains no I/O. Callers read a project directory into a
// ProjectContext and pass it in; everything here is derived from the entry
// names alone.
//
// # Functions
//
//   - Detection: decide whether a project is a Node.js project (Matches, Classify)
//   - Strategy: pick the dependency install strategy from lock files (SelectStrategy)
//   - Dockerfile: render the build script for a strategy (GenerateDockerfile)
//
// # Usage
//
// The imperative shell (internal/shell/template) reads the directory, then
// plans the build with these functions before writing the Dockerfile.
//
//	project := nodejs.NewProjectContext(root, names)
//	if nodejs.Matches(project) {
//		dockerfile := nodejs.GenerateDockerfile(nodejs.SelectStrategy(project))
//	}
package nodejs
