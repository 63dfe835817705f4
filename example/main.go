package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/metadeploy"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// start mock server (see mock_server.go)
	srv := StartMockMetadataServer(logger)
	defer srv.Close()

	conn, err := metadeploy.NewSOAPConnection(metadeploy.SOAPConfig{
		InstanceURL: srv.URL,
		SessionID:   "demo-session",
	})
	if err != nil {
		slog.Error("failed to create connection", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	// short waits so the demo finishes in under a second
	d, err := metadeploy.New(conn,
		metadeploy.WithLogger(logger),
		metadeploy.WithInitialWait(10*time.Millisecond),
		metadeploy.WithMaxPolls(10),
		metadeploy.WithPollCallback(func(ev metadeploy.PollEvent) {
			fmt.Printf("  poll %d after %-6s %-11s components %d/%d  tests %d/%d\n",
				ev.Poll, ev.Waited, ev.Status.State,
				ev.Status.ComponentsDeployed, ev.Status.ComponentsTotal,
				ev.Status.TestsCompleted, ev.Status.TestsTotal)
		}),
	)
	if err != nil {
		slog.Error("failed to create deployer", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  metadeploy demo")
	fmt.Println("  deploying a fake archive to", conn.Endpoint())
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	status, err := d.Deploy(ctx, []byte("PK\x03\x04demo"))

	var remote *metadeploy.RemoteError
	switch {
	case err == nil:
		fmt.Printf("\n  deployment %s succeeded\n", status.ID)
	case errors.Is(err, metadeploy.ErrDeploymentFailed):
		fmt.Printf("\n  deployment %s failed with %d component and %d test failures (see log above)\n",
			status.ID, status.ComponentErrors, status.TestErrors)
	case errors.As(err, &remote):
		fmt.Printf("\n  platform aborted the deployment: %s\n", remote)
	default:
		slog.Error("deployment error", "error", err)
		os.Exit(1)
	}
}
