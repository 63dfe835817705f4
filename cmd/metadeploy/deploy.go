package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/metadeploy"
	"github.com/jpalmerr/metadeploy/config"
	"github.com/jpalmerr/metadeploy/internal/metrics"
)

const pushTimeout = 10 * time.Second

// deployCmd submits an archive and waits for the deployment to finish.
var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy a metadata archive",
	Long: `Deploy a metadata zip archive and wait for the result.

The command polls the deployment with a doubling wait (1s, 2s, 4s, ...)
until it finishes or the poll budget runs out. Failures reported while the
deployment is running are logged as they appear; the final list of
failures is logged if the deployment does not succeed.

Exit codes:
  0 - Deployment succeeded
  1 - Deployment failed, timed out, or could not be submitted

Example:
  metadeploy deploy -c config.yaml -f package.zip
  cat package.zip | metadeploy deploy -c config.yaml -f -`,
	RunE: runDeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)

	deployCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	deployCmd.Flags().StringP("file", "f", "", "path to the zip archive, or - for stdin (required)")
	_ = deployCmd.MarkFlagRequired("config")
	_ = deployCmd.MarkFlagRequired("file")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	archive, _ := cmd.Flags().GetString("file")

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	m := metrics.New()
	d, conn, err := config.BuildDeployer(cfg, logger, metadeploy.WithPollCallback(func(ev metadeploy.PollEvent) {
		m.RecordPoll(ev.Details)
		if ev.Details && ev.Status.Details != nil {
			m.RecordFailures(len(ev.Status.Details.ComponentFailures), len(ev.Status.Details.RunTestResult.Failures))
		}
	}))
	if err != nil {
		return err
	}
	defer conn.Close()

	r, closeArchive, err := openArchive(cmd, archive)
	if err != nil {
		return err
	}
	defer closeArchive()

	logger.Info("deploying",
		"archive", archive,
		"endpoint", conn.Endpoint(),
		"max_polls", d.MaxPolls(),
	)

	// cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	status, deployErr := d.DeployReader(ctx, r)
	m.RecordResult(outcome(deployErr), time.Since(start))
	if status.Details != nil {
		m.RecordFailures(len(status.Details.ComponentFailures), len(status.Details.RunTestResult.Failures))
	}
	pushMetrics(cfg, m, logger)

	if deployErr != nil {
		return fmt.Errorf("deployment failed: %w", deployErr)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deployment %s succeeded (%d components, %d tests) in %s\n",
		status.ID, status.ComponentsDeployed, status.TestsCompleted, time.Since(start).Round(time.Second))
	return nil
}

// openArchive returns a reader for path, where "-" means stdin.
func openArchive(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// outcome maps a deploy error to a metrics outcome label.
func outcome(err error) string {
	var remote *metadeploy.RemoteError
	switch {
	case err == nil:
		return metrics.OutcomeSucceeded
	case errors.As(err, &remote):
		return metrics.OutcomeRemote
	case errors.Is(err, metadeploy.ErrTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, metadeploy.ErrTransport):
		return metrics.OutcomeTransport
	case errors.Is(err, context.Canceled):
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeFailed
	}
}

// pushMetrics sends run metrics to the configured Pushgateway. Failures are
// logged and do not change the command result.
func pushMetrics(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) {
	if cfg.Metrics.PushURL == "" {
		return
	}

	grouping := map[string]string{}
	if u, err := url.Parse(cfg.InstanceURL); err == nil {
		grouping["instance"] = u.Host
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	if err := m.Push(ctx, cfg.Metrics.PushURL, cfg.Metrics.Job, grouping); err != nil {
		logger.Warn("metrics push failed", "url", cfg.Metrics.PushURL, "error", err.Error())
		return
	}
	logger.Debug("metrics pushed", "url", cfg.Metrics.PushURL, "job", cfg.Metrics.Job)
}
