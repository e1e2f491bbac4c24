// imghub - submit vehicle images to the analysis endpoint and browse results.
package main

import (
	"os"

	"github.com/rescale/imghub/internal/cli"
	"github.com/rescale/imghub/internal/version"
)

// Version information, overridden via -ldflags at release time.
var (
	Version   = "v0.3.0-dev"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
