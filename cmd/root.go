// Package cmd implements the wyborczy command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wyborczy",
	Short: "Wyborczy - pytania i odpowiedzi o programy wyborcze",
	Long: `Wyborczy answers questions about Polish party election programs.

Answers are grounded in the official program documents: relevant passages
are retrieved per party, fed to the model, and streamed back to the caller.
Running wyborczy without a subcommand starts the HTTP API server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
