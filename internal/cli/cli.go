// Package cli provides the command-line interface for CortexAdvisor
package cli

import (
	"os"
)

// Version is reported by the version command.
const Version = "0.3.0"

// Run starts the CLI application
func Run() {
	rootCmd := NewRootCmd()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
