// Package version exposes build metadata stamped in via ldflags:
//
//	go build -ldflags "-X github.com/smazurov/camnode/internal/version.Version=v1.2.0"
package version

import "runtime"

// Set at link time. The defaults describe a from-source dev build.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info is the full build description served by the version endpoint.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get combines the linked-in metadata with the running toolchain's.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}
