// Package version exposes build-time version information.
package version

import "runtime"

// Set via -ldflags at build time; defaults cover plain `go build`.
var (
	// Version is the semantic version.
	Version = "dev"

	// GitCommit is the git commit hash.
	GitCommit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"

	// GoVersion is the Go version used to build.
	GoVersion = runtime.Version()
)
