package metadeploy

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// deployerConfig holds mutable state during Deployer construction.
type deployerConfig struct {
	logger        *slog.Logger
	recorder      Recorder
	initialWait   time.Duration
	maxPolls      int
	deployOptions DeployOptions
	pollCallbacks []func(PollEvent)
	sleep         SleepFunc
}

// SleepFunc blocks for d or until ctx is done, returning ctx.Err() in the
// latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option is a function that configures a [Deployer] during construction.
//
// Options return an error if validation fails.
type Option func(*deployerConfig) error

// WithLogger sets the [slog.Logger] used for per-poll status lines.
//
// If no recorder is configured with [WithRecorder], failure lines are also
// written to this logger at error level. Defaults to [slog.Default].
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *deployerConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithRecorder sets where formatted failure lines are written.
//
// Returns an error if the recorder is nil.
func WithRecorder(rec Recorder) Option {
	return func(cfg *deployerConfig) error {
		if rec == nil {
			return errors.New("recorder cannot be nil")
		}
		cfg.recorder = rec
		return nil
	}
}

// WithInitialWait sets the wait before the first status query. Every
// following wait is twice the previous one. Defaults to 1 second.
//
// Returns an error if the duration is zero or negative.
func WithInitialWait(d time.Duration) Option {
	return func(cfg *deployerConfig) error {
		if d <= 0 {
			return errors.New("initial wait must be positive")
		}
		cfg.initialWait = d
		return nil
	}
}

// WithMaxPolls sets the poll budget: the number of status queries made
// before giving up with [ErrTimeout]. Defaults to 50.
//
// Returns an error if n is zero or negative.
func WithMaxPolls(n int) Option {
	return func(cfg *deployerConfig) error {
		if n <= 0 {
			return errors.New("max polls must be positive")
		}
		cfg.maxPolls = n
		return nil
	}
}

// WithDeployOptions sets the options sent with every submission.
// Defaults to [DefaultDeployOptions].
//
// Returns an error if the test level is unknown, or if specified tests are
// requested without naming any.
func WithDeployOptions(opts DeployOptions) Option {
	return func(cfg *deployerConfig) error {
		if !opts.TestLevel.Valid() {
			return errors.New("unknown test level: " + string(opts.TestLevel))
		}
		if opts.TestLevel == TestLevelRunSpecifiedTests && len(opts.RunTests) == 0 {
			return errors.New("test level RunSpecifiedTests requires at least one test")
		}
		opts.RunTests = append([]string(nil), opts.RunTests...)
		cfg.deployOptions = opts
		return nil
	}
}

// WithPollCallback registers a function called after every status query
// made while waiting for completion.
//
// Callbacks run synchronously on the polling goroutine, in registration
// order. Panics are recovered and logged; they do not abort the deployment.
//
// Nil callbacks are silently ignored.
func WithPollCallback(cb func(PollEvent)) Option {
	return func(cfg *deployerConfig) error {
		if cb == nil {
			return nil
		}
		cfg.pollCallbacks = append(cfg.pollCallbacks, cb)
		return nil
	}
}

// WithSleeper replaces the function used to wait between polls.
// Intended for tests; the default waits on a timer and honours ctx.
//
// Returns an error if fn is nil.
func WithSleeper(fn SleepFunc) Option {
	return func(cfg *deployerConfig) error {
		if fn == nil {
			return errors.New("sleeper cannot be nil")
		}
		cfg.sleep = fn
		return nil
	}
}
