// Package buildinfo reports how the running binary was built.
//
// Version, commit and build time are injected with ldflags:
//
//	go build -ldflags "-X github.com/nomis52/signup/buildinfo.version=v1.2.0 \
//	    -X github.com/nomis52/signup/buildinfo.gitCommit=$(git rev-parse HEAD)"
//
// Values that were not injected fall back to the module build information
// recorded by the Go toolchain.
package buildinfo

import (
	"runtime"
	"runtime/debug"
)

const unknown = "unknown"

// Properties describes the running binary.
type Properties struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

var (
	version   = unknown
	gitCommit = unknown
	buildTime = unknown
)

// Get returns the build properties of the running binary.
func Get() Properties {
	p := Properties{
		Version:   version,
		GitCommit: gitCommit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		fillFromBuildInfo(&p, info)
	}
	return p
}

func fillFromBuildInfo(p *Properties, info *debug.BuildInfo) {
	if p.Version == unknown && info.Main.Version != "" && info.Main.Version != "(devel)" {
		p.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if p.GitCommit == unknown {
				p.GitCommit = s.Value
			}
		case "vcs.time":
			if p.BuildTime == unknown {
				p.BuildTime = s.Value
			}
		}
	}
}

// String renders the properties on a single line for CLI output.
func (p Properties) String() string {
	return p.Version + " (commit " + p.GitCommit + ", built " + p.BuildTime + ", " + p.GoVersion + ")"
}
