package gotlm

import (
	"runtime/debug"
	"sync"
)

const (
	Name        = "gotlm"
	Description = "Segment-based translation memory for structured content"
	Version     = "0.3.0"
)

// Stamped by release builds with -ldflags "-X github.com/ZaguanLabs/gotlm.GitCommit=...".
// When left unset, the VCS revision recorded by the Go toolchain is used.
var (
	GitCommit = ""
	BuildDate = ""
)

var buildInfo = sync.OnceValues(func() (revision, modified string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.time":
			modified = s.Value
		}
	}
	return revision, modified
})

// Commit returns the stamped commit, falling back to the embedded VCS
// revision, or "unknown".
func Commit() string {
	if GitCommit != "" {
		return GitCommit
	}
	if rev, _ := buildInfo(); rev != "" {
		return rev
	}
	return "unknown"
}

// Built returns the stamped build date or the VCS commit time.
func Built() string {
	if BuildDate != "" {
		return BuildDate
	}
	if _, t := buildInfo(); t != "" {
		return t
	}
	return "unknown"
}

// FullVersion is Version plus a short commit suffix, e.g. "0.3.0+1a2b3c4".
func FullVersion() string {
	c := Commit()
	if c == "unknown" {
		return Version
	}
	return Version + "+" + c[:min(len(c), 7)]
}

// UserAgent is sent to machine translation backends.
func UserAgent() string {
	return Name + "/" + Version
}
