// Package main is the entry point for the metadeploy CLI.
//
// Usage:
//
//	metadeploy deploy -c config.yaml -f package.zip   # Deploy and wait for the result
//	metadeploy status -c config.yaml 0Af...            # Show the status of a deployment
//	metadeploy validate -c config.yaml                 # Validate configuration
//	metadeploy version                                 # Show version info
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "metadeploy",
	Short: "Deploy metadata archives through the Metadata API",
	Long: `metadeploy submits a metadata zip archive to an org through the
Metadata SOAP API and waits for the deployment to finish, reporting
component and test failures as they appear.

Quick start:
  1. Create a config file (metadeploy.yaml)
  2. Export SF_SESSION_ID with a valid session id
  3. Run: metadeploy deploy -c metadeploy.yaml -f package.zip

Example config:
  instance_url: https://example.my.salesforce.com
  session_id: ${SF_SESSION_ID}
  deploy:
    test_level: RunLocalTests`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this metadeploy binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "metadeploy %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
}

// newLogger creates a JSON logger writing to w at the level selected by
// the --log-level flag.
func newLogger(cmd *cobra.Command, w io.Writer) (*slog.Logger, error) {
	raw, _ := cmd.Flags().GetString("log-level")

	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", raw, err)
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})), nil
}
