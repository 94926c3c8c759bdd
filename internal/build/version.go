package build

// Set at link time:
//
//	go build -ldflags "-X github.com/rohmanhakim/booth-archiver/internal/build.Version=1.2.0 ..."
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// FullVersion returns the version string with commit hash appended.
// Format: "Version+Commit" (e.g., "1.0.0+abc123"). A missing commit drops the suffix.
func FullVersion() string {
	if Commit == "" {
		return Version
	}
	return Version + "+" + Commit
}

