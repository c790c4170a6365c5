// Package version holds build metadata set with
// -ldflags "-X github.com/kailas-cloud/semsearch/internal/version.Version=...".
package version

//nolint:gochecknoglobals // overwritten by the linker
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the metadata for --version output.
func String() string {
	return Version + " (commit " + Commit + ", built " + Date + ")"
}
