package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/metadeploy"
	"github.com/jpalmerr/metadeploy/config"
)

// statusCmd shows the current status of a deployment.
var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the status of a deployment",
	Long: `Query a deployment once, with details, and print its state and failures.

This is useful to inspect a deployment submitted earlier, for example one
that outlived the poll budget of a previous deploy run.

Example:
  metadeploy status -c config.yaml 0Af5g00000AbCdEFGH`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = statusCmd.MarkFlagRequired("config")
}

func runStatus(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	d, conn, err := config.BuildDeployer(cfg, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	status, err := d.CheckStatus(cmd.Context(), metadeploy.JobID(args[0]), true)
	if err != nil {
		return fmt.Errorf("failed to check status: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job:        %s\n", status.ID)
	fmt.Fprintf(out, "State:      %s\n", status.State)
	fmt.Fprintf(out, "Done:       %t\n", status.Done)
	fmt.Fprintf(out, "Success:    %t\n", status.Success)
	fmt.Fprintf(out, "Components: %d/%d deployed, %d errors\n",
		status.ComponentsDeployed, status.ComponentsTotal, status.ComponentErrors)
	fmt.Fprintf(out, "Tests:      %d/%d completed, %d errors\n",
		status.TestsCompleted, status.TestsTotal, status.TestErrors)
	if status.HasErrorCode() {
		fmt.Fprintf(out, "Error:      %s\n", (&metadeploy.RemoteError{Code: status.ErrorCode, Message: status.ErrorMessage}).Error())
	}

	metadeploy.ReportFailures(metadeploy.RecorderFunc(func(line string) {
		fmt.Fprintln(out, line)
	}), status, "Failures:")

	return nil
}
