// Package version carries the build identity stamped into release binaries.
package version

import "fmt"

// Overridden at link time:
//
//	go build -ldflags "-X github.com/chainboard/chainboard/internal/version.Version=v0.3.0 ..."
var (
	// Version is the release version; "dev" for local builds.
	Version = "dev"

	// Commit is the short git revision.
	Commit = "unknown"

	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// String renders the identity as "version/commit (built time)".
func String() string {
	return fmt.Sprintf("%s/%s (built %s)", Version, Commit, BuildTime)
}
