package metadeploy

import (
	"errors"
	"fmt"
)

// Sentinel errors for classification via errors.Is.
var (
	// ErrTransport marks a failed call to the platform (network or protocol).
	// Transport failures are never retried.
	ErrTransport = errors.New("transport error")

	// ErrTimeout marks an exhausted poll budget.
	ErrTimeout = errors.New("deployment timed out")

	// ErrDeploymentFailed marks a job that completed unsuccessfully without
	// an explicit error code.
	ErrDeploymentFailed = errors.New("the files were not successfully deployed")
)

// RemoteError is returned when the platform finishes a job unsuccessfully
// and attaches an explicit error code. It takes priority over
// [ErrDeploymentFailed].
type RemoteError struct {
	Code    string
	Message string
}

// Error returns the code and message as reported by the platform.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s msg: %s", e.Code, e.Message)
}

// transportError wraps err so that errors.Is(err, ErrTransport) holds while
// the original cause stays reachable.
func transportError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
}

// timeoutError reports the poll budget that was exhausted.
func timeoutError(maxPolls int) error {
	return fmt.Errorf("%w: no result after %d status requests; "+
		"if this is a large set of metadata components, raise the poll budget", ErrTimeout, maxPolls)
}
