// Package cli implements the RoboOS command-line interface using Cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roboos-network/roboos/internal/api"
)

var rootCmd = &cobra.Command{
	Use:   "roboos",
	Short: "RoboOS: simulated robot task network",
	Long: `RoboOS runs the state engine behind the robot network dashboard:
a fixed fleet of robots, their tasks and payment channels, advanced by a
periodic tick while a wallet session is connected.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version
	api.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
