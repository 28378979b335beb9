// ipdata uploads dataset files to object storage and registers them as IP
// assets.
package main

import (
	"os"

	"github.com/ipdata/ipdata/internal/cli"
	"github.com/ipdata/ipdata/internal/version"
)

// Set via -ldflags "-X main.Version=... -X main.BuildTime=..."
var (
	Version   = ""
	BuildTime = ""
)

func main() {
	if Version != "" {
		version.Version = Version
	}
	if BuildTime != "" {
		version.BuildTime = BuildTime
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
