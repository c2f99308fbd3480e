// Package version carries the build identity injected via -ldflags.
package version

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// String renders the full build identity for the startup log.
func String() string {
	return Version + " (commit " + Commit + ", built " + BuildDate + ")"
}
