// mediasink saves and loads media across local disk and cloud storage.
package main

import (
	"os"

	"github.com/mediasink/mediasink/internal/cli"
	"github.com/mediasink/mediasink/internal/version"
)

// Version information, overridden via LDFLAGS for release builds.
var (
	Version   = "v1.3.0"
	BuildTime = "unknown"
)

func main() {
	// The version package is the canonical source read everywhere else.
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
