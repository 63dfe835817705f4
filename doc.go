// Package metadeploy deploys metadata archives to an org through the
// Metadata SOAP API and waits for the asynchronous job to finish.
//
// A deployment is submitted once and then polled. The wait between polls
// starts at one second and doubles after every poll; every third poll asks
// for component and test failures, which are reported while the job is
// still running. The number of polls is bounded by a budget (50 by
// default) rather than by wall-clock time.
//
// # Quick Start
//
//	conn, _ := metadeploy.NewSOAPConnection(metadeploy.SOAPConfig{
//	    InstanceURL: "https://example.my.salesforce.com",
//	    SessionID:   os.Getenv("SF_SESSION_ID"),
//	})
//	d, _ := metadeploy.New(conn, metadeploy.WithLogger(logger))
//
//	status, err := d.DeployFile(ctx, "package.zip")
//
// # Errors
//
// Failures are classified with errors.Is and errors.As:
//
//   - [ErrTransport]: a remote call failed; never retried
//   - [ErrTimeout]: the poll budget ran out
//   - [*RemoteError]: the platform aborted the job with an explicit code
//   - [ErrDeploymentFailed]: the job finished unsuccessfully; failures were reported
//
// # Reporting
//
// Component and test failures are formatted one per line and handed to a
// [Recorder]. By default lines go to the configured [slog.Logger] at error
// level; tests can inject their own recorder with [WithRecorder].
//
// # Architecture
//
//   - internal/soap: SOAP envelope codec and HTTP client for deploy and checkDeployStatus
//   - internal/soaptest: scripted fake Metadata API server
//   - internal/metrics: Prometheus metrics pushed to a Pushgateway
//   - config: YAML configuration for the metadeploy CLI
package metadeploy
