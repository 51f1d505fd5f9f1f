// Package version exposes build metadata for log lines and --version.
//
// Release builds stamp the variables through ldflags, e.g.:
//
//	go build -ldflags "\
//	  -X github.com/mmgame/tableclient/internal/version.Version=$(git describe --tags) \
//	  -X github.com/mmgame/tableclient/internal/version.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/mmgame/tableclient/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"

	// Commit is the short git hash of the build.
	Commit = "unknown"

	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// String formats the full build description.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}
