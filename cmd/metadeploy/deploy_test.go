package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jpalmerr/metadeploy"
	"github.com/jpalmerr/metadeploy/internal/metrics"
	"github.com/jpalmerr/metadeploy/internal/soap"
	"github.com/jpalmerr/metadeploy/internal/soaptest"
)

// serverConfig returns a config pointing at srv with a millisecond wait.
func serverConfig(t *testing.T, srv *soaptest.Server) string {
	t.Helper()

	return writeConfig(t, fmt.Sprintf(`
instance_url: %s
session_id: test-session
poll:
  initial_wait: 1ms
  max_polls: 10
`, srv.URL))
}

func writeArchive(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "package.zip")
	if err := os.WriteFile(path, []byte("PK\x03\x04fake"), 0644); err != nil {
		t.Fatalf("failed to write archive: %v", err)
	}
	return path
}

func TestRunDeploy_Success(t *testing.T) {
	srv := soaptest.NewServer(soaptest.WithScript(
		soaptest.InProgress(nil),
		soaptest.Succeeded(),
	))
	defer srv.Close()

	output, err := executeCmd(t, "deploy", "-c", serverConfig(t, srv), "-f", writeArchive(t))
	if err != nil {
		t.Fatalf("deploy command error = %v", err)
	}

	if !strings.Contains(output, "Deployment "+soaptest.DefaultJobID+" succeeded") {
		t.Errorf("output = %q, want success line", output)
	}

	// two summary polls, then one forced detail query
	flags := srv.DetailFlags()
	want := []bool{false, false, true}
	if fmt.Sprint(flags) != fmt.Sprint(want) {
		t.Errorf("DetailFlags() = %v, want %v", flags, want)
	}

	deploys := srv.Deploys()
	if len(deploys) != 1 {
		t.Fatalf("len(Deploys()) = %d, want 1", len(deploys))
	}
	if !deploys[0].Options.RollbackOnError {
		t.Error("deploy sent rollbackOnError = false, want true")
	}
	for _, id := range srv.SessionIDs() {
		if id != "test-session" {
			t.Errorf("session id = %q, want %q", id, "test-session")
		}
	}
}

func TestRunDeploy_ComponentFailure(t *testing.T) {
	srv := soaptest.NewServer(soaptest.WithScript(
		soaptest.Failed(soaptest.ComponentFailure("classes/Foo.cls", "3", "7", "Unexpected token")),
	))
	defer srv.Close()

	_, err := executeCmd(t, "deploy", "-c", serverConfig(t, srv), "-f", writeArchive(t))
	if err == nil {
		t.Fatal("deploy command expected error, got nil")
	}
	if !errors.Is(err, metadeploy.ErrDeploymentFailed) {
		t.Errorf("error = %v, want ErrDeploymentFailed", err)
	}
}

func TestRunDeploy_RemoteError(t *testing.T) {
	srv := soaptest.NewServer(soaptest.WithScript(
		soaptest.Aborted("INVALID_SESSION", "expired"),
	))
	defer srv.Close()

	_, err := executeCmd(t, "deploy", "-c", serverConfig(t, srv), "-f", writeArchive(t))

	var remote *metadeploy.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("error = %v, want *RemoteError", err)
	}
	if remote.Code != "INVALID_SESSION" {
		t.Errorf("Code = %q, want %q", remote.Code, "INVALID_SESSION")
	}
}

func TestRunDeploy_MissingArchive(t *testing.T) {
	srv := soaptest.NewServer()
	defer srv.Close()

	_, err := executeCmd(t, "deploy", "-c", serverConfig(t, srv), "-f", "/nonexistent/package.zip")
	if err == nil {
		t.Fatal("deploy command expected error for missing archive, got nil")
	}
	if !strings.Contains(err.Error(), "failed to open archive") {
		t.Errorf("error should mention 'failed to open archive', got: %v", err)
	}
	if len(srv.Deploys()) != 0 {
		t.Error("nothing should be submitted when the archive cannot be opened")
	}
}

func TestRunDeploy_Fault(t *testing.T) {
	srv := soaptest.NewServer(soaptest.WithFault(soap.Fault{
		Code:   "sf:INVALID_SESSION_ID",
		String: "Invalid Session ID found in SessionHeader",
	}))
	defer srv.Close()

	_, err := executeCmd(t, "deploy", "-c", serverConfig(t, srv), "-f", writeArchive(t))
	if !errors.Is(err, metadeploy.ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
}

func TestRunStatus(t *testing.T) {
	srv := soaptest.NewServer(soaptest.WithScript(
		soaptest.Failed(soaptest.ComponentFailure("classes/Foo.cls", "3", "7", "Unexpected token")),
	))
	defer srv.Close()

	output, err := executeCmd(t, "status", "-c", serverConfig(t, srv), "0Af000000000009AAA")
	if err != nil {
		t.Fatalf("status command error = %v", err)
	}

	expectedPhrases := []string{
		"Job:        0Af000000000009AAA",
		"State:      Failed",
		"Done:       true",
		"Failures:",
		"classes/Foo.cls(3, 7) : Unexpected token",
	}
	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("output missing %q\nGot: %s", phrase, output)
		}
	}

	if flags := srv.DetailFlags(); len(flags) != 1 || !flags[0] {
		t.Errorf("DetailFlags() = %v, want [true]", flags)
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, metrics.OutcomeSucceeded},
		{"remote", &metadeploy.RemoteError{Code: "X"}, metrics.OutcomeRemote},
		{"timeout", fmt.Errorf("wrapped: %w", metadeploy.ErrTimeout), metrics.OutcomeTimeout},
		{"transport", fmt.Errorf("wrapped: %w", metadeploy.ErrTransport), metrics.OutcomeTransport},
		{"failed", metadeploy.ErrDeploymentFailed, metrics.OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outcome(tt.err); got != tt.want {
				t.Errorf("outcome(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
