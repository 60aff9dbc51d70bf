// Package version holds build metadata, overridden at link time with
// -ldflags "-X strata/internal/shared/version.Version=...".
package version

var (
	Version = "0.1.0-dev"
	Commit  = "unknown"
)
