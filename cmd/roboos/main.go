// Package main is the single-binary entrypoint for RoboOS.
package main

import "github.com/roboos-network/roboos/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
