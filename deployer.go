package metadeploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

const (
	defaultInitialWait = time.Second
	defaultMaxPolls    = 50

	// every detailEvery-th poll asks for component and test failures
	detailEvery = 3
)

// Connection is the remote deploy endpoint as seen by a [Deployer].
//
// Implementations must be safe to call repeatedly from a single goroutine.
// [NewSOAPConnection] provides the production implementation; tests can
// substitute a scripted fake.
type Connection interface {
	// Deploy submits the archive and returns the id of the async job.
	Deploy(ctx context.Context, zip []byte, opts DeployOptions) (JobID, error)

	// CheckDeployStatus queries the job. includeDetails asks for component
	// and test failures, which costs more on the remote side.
	CheckDeployStatus(ctx context.Context, id JobID, includeDetails bool) (DeployStatus, error)
}

// PollEvent describes one status query made by [Deployer.AwaitCompletion].
type PollEvent struct {
	JobID     JobID
	Poll      int
	Waited    time.Duration
	Details   bool
	Status    DeployStatus
	CheckedAt time.Time
}

// Deployer submits metadata archives and waits for the platform to finish
// applying them.
//
// A Deployer tracks one job at a time and polls on the calling goroutine.
// The wait between polls doubles after every poll and the number of polls
// is bounded by a budget rather than a wall-clock timeout.
type Deployer struct {
	conn          Connection
	logger        *slog.Logger
	recorder      Recorder
	initialWait   time.Duration
	maxPolls      int
	deployOptions DeployOptions
	pollCallbacks []func(PollEvent)
	sleep         SleepFunc
}

// New creates a [Deployer] that talks to the platform through conn.
//
// Defaults:
//   - Initial wait: 1 second, doubling after every poll
//   - Poll budget: 50 status queries
//   - Deploy options: [DefaultDeployOptions]
//   - Logger: [slog.Default]; failure lines go to the same logger at error level
//
// Returns an error if conn is nil or any option is invalid.
func New(conn Connection, opts ...Option) (*Deployer, error) {
	if conn == nil {
		return nil, errors.New("connection is required")
	}

	cfg := &deployerConfig{
		initialWait:   defaultInitialWait,
		maxPolls:      defaultMaxPolls,
		deployOptions: DefaultDeployOptions(),
		sleep:         sleepContext,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.recorder
	if recorder == nil {
		recorder = NewLogRecorder(logger)
	}

	return &Deployer{
		conn:          conn,
		logger:        logger,
		recorder:      recorder,
		initialWait:   cfg.initialWait,
		maxPolls:      cfg.maxPolls,
		deployOptions: cfg.deployOptions,
		pollCallbacks: cfg.pollCallbacks,
		sleep:         cfg.sleep,
	}, nil
}

// InitialWait returns the wait before the first status query.
func (d *Deployer) InitialWait() time.Duration {
	return d.initialWait
}

// MaxPolls returns the poll budget.
func (d *Deployer) MaxPolls() int {
	return d.maxPolls
}

// DeployOptions returns a copy of the options sent with every submission.
func (d *Deployer) DeployOptions() DeployOptions {
	opts := d.deployOptions
	opts.RunTests = append([]string(nil), opts.RunTests...)
	return opts
}

// Submit sends payload to the platform and returns the job id.
//
// Any failure of the remote call is reported as [ErrTransport]; it is not
// retried.
func (d *Deployer) Submit(ctx context.Context, payload []byte, opts DeployOptions) (JobID, error) {
	if len(payload) == 0 {
		return "", errors.New("archive payload is empty")
	}

	id, err := d.conn.Deploy(ctx, payload, opts)
	if err != nil {
		return "", d.callError(ctx, "deploy", err)
	}
	if id == "" {
		return "", transportError("deploy", errors.New("platform returned an empty job id"))
	}

	d.logger.Info("deployment submitted",
		"job_id", id.String(),
		"bytes", len(payload),
		"rollback_on_error", opts.RollbackOnError,
		"check_only", opts.CheckOnly,
	)
	return id, nil
}

// AwaitCompletion polls the job until the platform reports it done.
//
// The wait before poll n is initialWait * 2^(n-1). Every third poll asks
// for failure details; while the job is still running those failures are
// reported as informational lines. Exceeding the poll budget returns
// [ErrTimeout] without polling again.
//
// When the job ends unsuccessfully with an explicit error code, the final
// status is returned together with a [*RemoteError]. Otherwise, if the last
// poll did not ask for details, one more detailed query is made so the
// returned status always carries whatever failures the platform has.
func (d *Deployer) AwaitCompletion(ctx context.Context, id JobID) (DeployStatus, error) {
	var (
		status       DeployStatus
		fetchDetails bool
	)

	wait := d.initialWait
	for poll := 1; ; poll++ {
		if poll > d.maxPolls {
			return status, timeoutError(d.maxPolls)
		}

		if err := d.sleep(ctx, wait); err != nil {
			return status, err
		}
		waited := wait
		wait = doubleWait(wait)

		fetchDetails = poll%detailEvery == 0
		current, err := d.conn.CheckDeployStatus(ctx, id, fetchDetails)
		if err != nil {
			return status, d.callError(ctx, "check deploy status", err)
		}
		status = current

		d.logger.Info("deploy status",
			"job_id", id.String(),
			"poll", poll,
			"state", status.State.String(),
			"done", status.Done,
			"details", fetchDetails,
		)
		d.notify(PollEvent{
			JobID:     id,
			Poll:      poll,
			Waited:    waited,
			Details:   fetchDetails,
			Status:    status,
			CheckedAt: time.Now(),
		})

		if status.Done {
			break
		}
		if fetchDetails {
			ReportFailures(d.recorder, status, inProgressHeader)
		}
	}

	if !status.Success && status.HasErrorCode() {
		return status, &RemoteError{Code: status.ErrorCode, Message: status.ErrorMessage}
	}

	if !fetchDetails {
		final, err := d.conn.CheckDeployStatus(ctx, id, true)
		if err != nil {
			return status, d.callError(ctx, "check deploy status", err)
		}
		status = final
	}

	return status, nil
}

// CheckStatus makes a single status query for id.
func (d *Deployer) CheckStatus(ctx context.Context, id JobID, includeDetails bool) (DeployStatus, error) {
	status, err := d.conn.CheckDeployStatus(ctx, id, includeDetails)
	if err != nil {
		return DeployStatus{}, d.callError(ctx, "check deploy status", err)
	}
	return status, nil
}

// ReportFailures writes the failures in status to the configured recorder.
func (d *Deployer) ReportFailures(status DeployStatus, header string) {
	ReportFailures(d.recorder, status, header)
}

// Deploy submits payload with the configured options and waits for the
// result.
//
// An unsuccessful job with an explicit error code returns a [*RemoteError].
// Any other unsuccessful job has its failures reported and returns
// [ErrDeploymentFailed]. The final status is returned in every case where
// one was received.
func (d *Deployer) Deploy(ctx context.Context, payload []byte) (DeployStatus, error) {
	id, err := d.Submit(ctx, payload, d.deployOptions)
	if err != nil {
		return DeployStatus{}, err
	}

	status, err := d.AwaitCompletion(ctx, id)
	if err != nil {
		return status, err
	}

	if !status.Success {
		ReportFailures(d.recorder, status, finalHeader)
		return status, fmt.Errorf("%w (job %s, state %s)", ErrDeploymentFailed, id, status.State)
	}

	d.logger.Info("deployment succeeded",
		"job_id", id.String(),
		"state", status.State.String(),
		"components_deployed", status.ComponentsDeployed,
		"tests_completed", status.TestsCompleted,
	)
	return status, nil
}

// DeployReader reads the whole archive from r and deploys it.
func (d *Deployer) DeployReader(ctx context.Context, r io.Reader) (DeployStatus, error) {
	payload, err := io.ReadAll(r)
	if err != nil {
		return DeployStatus{}, fmt.Errorf("failed to read archive: %w", err)
	}
	return d.Deploy(ctx, payload)
}

// DeployFile reads the archive at path and deploys it.
func (d *Deployer) DeployFile(ctx context.Context, path string) (DeployStatus, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return DeployStatus{}, fmt.Errorf("failed to read archive: %w", err)
	}
	return d.Deploy(ctx, payload)
}

// callError classifies a failed remote call. Cancellation of ctx is
// returned as is so callers can tell it apart from a platform failure.
func (d *Deployer) callError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return ctxErr
	}
	return transportError(op, err)
}

// notify delivers ev to every poll callback.
func (d *Deployer) notify(ev PollEvent) {
	for _, cb := range d.pollCallbacks {
		d.invokeCallbackSafe(cb, ev)
	}
}

// invokeCallbackSafe calls a poll callback with panic recovery.
// The stack trace is logged under a correlation id.
func (d *Deployer) invokeCallbackSafe(cb func(PollEvent), ev PollEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("poll callback panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"job_id", ev.JobID.String(),
				"poll", ev.Poll,
				"stack", string(debug.Stack()),
			)
		}
	}()
	cb(ev)
}

// doubleWait returns 2*d, saturating instead of overflowing.
func doubleWait(d time.Duration) time.Duration {
	if d > math.MaxInt64/2 {
		return time.Duration(math.MaxInt64)
	}
	return d * 2
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
