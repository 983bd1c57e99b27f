// Package version holds the build version, overridable via -ldflags.
package version

// Version is the application version.
var Version = "v0.3.0"

// Commit is the VCS revision, set at build time.
var Commit = "dev"

// String returns version and commit for logs and /api/version.
func String() string {
	return Version + " (" + Commit + ")"
}
