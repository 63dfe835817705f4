// Standalone mock Metadata API for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/metadeploy deploy -c example/config.yaml -f some.zip
//
// The first deployment runs for two polls and then succeeds; later status
// queries repeat the final result. Start with -fail to finish on a
// component failure instead.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jpalmerr/metadeploy/internal/soap"
	"github.com/jpalmerr/metadeploy/internal/soaptest"
)

func main() {
	addr := flag.String("addr", ":9999", "listen address")
	fail := flag.Bool("fail", false, "finish deployments with a component failure")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	last := soaptest.Succeeded()
	if *fail {
		last = soaptest.Failed(soaptest.ComponentFailure("classes/Invoice.cls", "17", "9", "Variable does not exist: total"))
	}
	script := []soap.DeployResult{
		soaptest.InProgress(nil),
		soaptest.InProgress(nil),
		last,
	}

	fmt.Printf("Mock Metadata API listening on %s\n", *addr)
	fmt.Println("The deployment finishes on the third status query")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	handler := soaptest.NewHandler(soaptest.WithScript(script...), soaptest.WithLogger(logger))
	if err := http.ListenAndServe(*addr, handler); err != nil {
		slog.Error("mock server error", "error", err)
		os.Exit(1)
	}
}
