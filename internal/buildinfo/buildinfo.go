// Package buildinfo exposes the fwversion binary's own version metadata,
// injected at build time.
package buildinfo

import "fmt"

// Info captures identifying metadata for a build of fwversion.
type Info struct {
	Version     string
	BuildNumber string
	GitCommit   string
	BuildDate   string
}

// These variables are intended to be overridden via -ldflags during release
// builds, for example with the values fwversion itself reports:
//
//	go build -ldflags "-X fwversion/internal/buildinfo.BuildNumber=$(git rev-list --count HEAD)"
var (
	Version     = "dev"
	BuildNumber = "0"
	GitCommit   = "unknown"
	BuildDate   = "unknown"
)

// Current returns the build metadata for logging and the version command.
func Current() Info {
	return Info{
		Version:     Version,
		BuildNumber: BuildNumber,
		GitCommit:   GitCommit,
		BuildDate:   BuildDate,
	}
}

// String renders "fwversion dev (b0 @unknown, built unknown)".
func (i Info) String() string {
	return fmt.Sprintf("fwversion %s (b%s @%s, built %s)", i.Version, i.BuildNumber, i.GitCommit, i.BuildDate)
}
