// Package version reports the build version of the precilaser binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

// These variables can be set at build time via ldflags:
//
//	go build -ldflags="-X github.com/muurk/precilaser/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/precilaser/internal/version.Commit=abc123"
//
// When unset they are filled from the module and VCS build info.
var (
	Version = ""
	Commit  = ""
)

// Info describes the running binary
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

var (
	once sync.Once
	info Info
)

// Get returns the build info, resolved once per process
func Get() Info {
	once.Do(func() {
		bi, _ := debug.ReadBuildInfo()
		info = resolve(Version, Commit, bi)
	})
	return info
}

// resolve fills version fields that were not set by ldflags from the build
// info. bi may be nil.
func resolve(version, commit string, bi *debug.BuildInfo) Info {
	out := Info{
		Version:   version,
		Commit:    commit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi != nil {
		// go install module@vX.Y.Z records the tag here
		if out.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			out.Version = bi.Main.Version
		}

		var revision, modified, vcsTime string
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				revision = s.Value
			case "vcs.modified":
				modified = s.Value
			case "vcs.time":
				vcsTime = s.Value
			}
		}

		if out.Commit == "" && revision != "" {
			out.Commit = revision
			if len(out.Commit) > 7 {
				out.Commit = out.Commit[:7]
			}
			if modified == "true" {
				out.Commit += "-dirty"
			}
		}

		if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
			out.BuildTime = t.UTC().Format(time.RFC3339)
			if out.Version == "" {
				out.Version = "dev-" + t.Format("20060102")
			}
		}
	}

	if out.Version == "" {
		out.Version = "dev"
	}
	if out.Commit == "" {
		out.Commit = "unknown"
	}
	return out
}

// Full returns the version string including commit
func Full() string {
	i := Get()
	return fmt.Sprintf("%s (commit: %s)", i.Version, i.Commit)
}
