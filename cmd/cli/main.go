package main

import (
	"fmt"
	"os"

	"github.com/pixelforge/pixelforge/internal/api/cli"
)

var (
	// Version is the application version
	Version = "dev"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

func main() {
	cli.SetVersionInfo(Version, BuildTime, GitCommit)

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
