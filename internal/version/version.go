// Package version holds build-time version information.
package version

// Set at build time via -ldflags, e.g.
// -ldflags "-X .../internal/version.Version=v0.3.0".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
