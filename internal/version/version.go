// Package version provides the release version of the tools.
package version

// Build information, overridden at build time with
// -ldflags "-X .../internal/version.version=... -X .../internal/version.commit=...".
var (
	version = "0.1.0"
	commit  = "dev"
)

// Ver provides the build version
type Ver struct {
	Version string
	Commit  string
}

// Current returns the current version
func Current() Ver {
	return Ver{
		Version: version,
		Commit:  commit,
	}
}

func (v Ver) String() string {
	return v.Version + "-" + v.Commit
}
