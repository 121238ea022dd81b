package version

// These variables are set at build time via -ldflags
// Example: go build -ldflags "-X github.com/pysugar/quickmeeting/internal/version.Version=v0.2.0"
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// String formats the build metadata for startup logs.
func String() string {
	return Version + " (" + Commit + ", built " + BuildTime + ")"
}
