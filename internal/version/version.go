// Package version reports the build of the gendbuntu binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time with -ldflags "-X github.com/example/gendbuntu/internal/version.Commit=...".
var (
	Commit    = ""
	BuildTime = "unknown"
)

// String returns the version line shown by --version.
func String() string {
	return fmt.Sprintf("gendbuntu dev (commit: %s, built: %s)", commit(), BuildTime)
}

// commit prefers the ldflags value, then the VCS stamp of the Go toolchain.
func commit() string {
	c := Commit
	if c == "" {
		c = vcsRevision()
	}
	if c == "" {
		return "unknown"
	}
	if len(c) > 7 {
		return c[:7]
	}
	return c
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}
