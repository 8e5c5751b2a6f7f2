// Package version exposes build metadata injected at link time.
package version

import "runtime"

// Populated via -ldflags at build time, e.g.
// go build -ldflags "-X .../internal/version.Commit=$(git rev-parse HEAD)".
var (
	Version   = "1.0.0"
	Commit    = "unknown"
	BuildTime = "unknown"
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}
