package main

import (
	"fmt"
	"os"

	"github.com/mfat/mfatfm/internal/cli"
	"github.com/mfat/mfatfm/internal/version"
)

// Overridden via -ldflags at release time.
var (
	buildVersion = "v1.0.0-dev"
	buildTime    = "unknown"
)

func main() {
	version.Version = buildVersion
	version.BuildTime = buildTime

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
