package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/metadeploy/config"
)

// validateCmd validates a config file without contacting the org.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a metadeploy configuration file without deploying anything.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines before running a deployment.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  metadeploy validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	opts := cfg.DeployOptions()
	testLevel := string(opts.TestLevel)
	if testLevel == "" {
		testLevel = "platform default"
	}
	push := cfg.Metrics.PushURL
	if push == "" {
		push = "disabled"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Instance:      %s (API %s)\n", cfg.InstanceURL, cfg.APIVersion)
	fmt.Fprintf(out, "  Poll:          initial wait %s, budget %d polls\n",
		cfg.Poll.InitialWait.Duration(), cfg.Poll.MaxPolls)
	fmt.Fprintf(out, "  Rollback:      %t\n", opts.RollbackOnError)
	fmt.Fprintf(out, "  Check only:    %t\n", opts.CheckOnly)
	fmt.Fprintf(out, "  Test level:    %s\n", testLevel)
	fmt.Fprintf(out, "  Metrics push:  %s\n", push)

	return nil
}
