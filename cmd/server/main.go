package main

import (
	"architect/internal/logger"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd runs the server when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "architect",
	Short: "Guided interview service that turns app ideas into build specifications",
	Long: `Architect interviews a user about an app idea across five phases, then
synthesizes a structured specification and a build prompt from the transcript.

Available commands:
  serve    - Run the HTTP API (default)
  migrate  - Apply or roll back database migrations
  schema   - Print the JSON schema requested from the model during synthesis`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(schemaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
