// Package cmd provides the command-line interface for the access authority
// service using the Cobra framework. It defines the root command and
// subcommands for serving the gRPC service and evaluating expressions
// standalone.
package cmd

import "github.com/spf13/cobra"

// rootCmd is the base command for the CLI. Subcommands are registered via their init() hooks.
var rootCmd = &cobra.Command{
	Use:   "access-authority",
	Short: "Boolean access-expression authorization service",
}

// Execute runs the root Cobra command and returns any error encountered during execution.
// This is the main entry point called from main.go.
func Execute() error {
	return rootCmd.Execute()
}
