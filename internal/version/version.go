// Package version holds build metadata, set with -ldflags "-X ...".
package version

import "runtime"

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)
