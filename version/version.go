package version

import "os"

// commit is set at build time with
//
//	-ldflags "-X github.com/replicate/rsmq/version.commit=$(git rev-parse HEAD)"
var commit string

// Version returns the short commit the binary was built from, preferring
// COMMIT_SHA from the environment.
func Version() string {
	v := os.Getenv("COMMIT_SHA")
	if v == "" {
		v = commit
	}
	if v == "" {
		v = "unknown"
	}
	if len(v) > 7 {
		v = v[:7]
	}
	return v
}
