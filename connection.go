package metadeploy

import (
	"context"
	"time"

	"github.com/jpalmerr/metadeploy/internal/soap"
)

// SOAPConfig describes how to reach the Metadata API of an org.
//
// Session establishment is out of scope: SessionID must already be valid.
type SOAPConfig struct {
	// InstanceURL is the org base URL, e.g. https://example.my.salesforce.com.
	InstanceURL string

	// APIVersion is the Metadata API version. Defaults to 59.0.
	APIVersion string

	// SessionID authorizes every call.
	SessionID string

	// Timeout bounds each remote call. Defaults to 2 minutes.
	Timeout time.Duration
}

// SOAPConnection is the production [Connection], speaking SOAP over HTTP.
type SOAPConnection struct {
	client *soap.Client
}

// NewSOAPConnection creates a [SOAPConnection] for cfg.
//
// Returns an error if the instance URL is missing or invalid.
func NewSOAPConnection(cfg SOAPConfig) (*SOAPConnection, error) {
	client, err := soap.NewClient(soap.Config{
		InstanceURL: cfg.InstanceURL,
		APIVersion:  cfg.APIVersion,
		SessionID:   cfg.SessionID,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return &SOAPConnection{client: client}, nil
}

// Endpoint returns the URL calls are posted to.
func (c *SOAPConnection) Endpoint() string {
	return c.client.Endpoint()
}

// Deploy implements [Connection].
func (c *SOAPConnection) Deploy(ctx context.Context, zip []byte, opts DeployOptions) (JobID, error) {
	result, err := c.client.Deploy(ctx, zip, toWireOptions(opts))
	if err != nil {
		return "", err
	}
	return JobID(result.ID), nil
}

// CheckDeployStatus implements [Connection].
func (c *SOAPConnection) CheckDeployStatus(ctx context.Context, id JobID, includeDetails bool) (DeployStatus, error) {
	result, err := c.client.CheckDeployStatus(ctx, id.String(), includeDetails)
	if err != nil {
		return DeployStatus{}, err
	}
	return fromWireResult(result), nil
}

// Close releases idle connections.
func (c *SOAPConnection) Close() {
	if c == nil {
		return
	}
	c.client.Close()
}

// toWireOptions converts public deploy options to the wire form.
func toWireOptions(opts DeployOptions) soap.DeployOptions {
	return soap.DeployOptions{
		AllowMissingFiles: opts.AllowMissingFiles,
		CheckOnly:         opts.CheckOnly,
		IgnoreWarnings:    opts.IgnoreWarnings,
		PerformRetrieve:   opts.PerformRetrieve,
		RollbackOnError:   opts.RollbackOnError,
		RunTests:          append([]string(nil), opts.RunTests...),
		SinglePackage:     opts.SinglePackage,
		TestLevel:         string(opts.TestLevel),
	}
}

// fromWireResult converts a wire deploy result to the public type.
func fromWireResult(r soap.DeployResult) DeployStatus {
	status := DeployStatus{
		ID:                 JobID(r.ID),
		Done:               r.Done,
		Success:            r.Success,
		State:              State(r.Status),
		ErrorCode:          r.ErrorStatusCode,
		ErrorMessage:       r.ErrorMessage,
		ComponentsDeployed: r.NumberComponentsDeployed,
		ComponentErrors:    r.NumberComponentErrors,
		ComponentsTotal:    r.NumberComponentsTotal,
		TestsCompleted:     r.NumberTestsCompleted,
		TestErrors:         r.NumberTestErrors,
		TestsTotal:         r.NumberTestsTotal,
	}
	if r.Details == nil {
		return status
	}

	details := &DeployDetails{
		ComponentFailures: make([]ComponentFailure, 0, len(r.Details.ComponentFailures)),
		RunTestResult: RunTestResult{
			NumTestsRun: r.Details.RunTestResult.NumTestsRun,
			NumFailures: r.Details.RunTestResult.NumFailures,
			Failures:    make([]TestFailure, 0, len(r.Details.RunTestResult.Failures)),
		},
	}
	for _, m := range r.Details.ComponentFailures {
		details.ComponentFailures = append(details.ComponentFailures, ComponentFailure{
			FileName:      m.FileName,
			FullName:      m.FullName,
			ComponentType: m.ComponentType,
			Line:          m.LineNumber,
			Column:        m.ColumnNumber,
			Problem:       m.Problem,
			ProblemType:   m.ProblemType,
		})
	}
	for _, f := range r.Details.RunTestResult.Failures {
		details.RunTestResult.Failures = append(details.RunTestResult.Failures, TestFailure{
			Namespace:  f.Namespace,
			Name:       f.Name,
			MethodName: f.MethodName,
			Message:    f.Message,
			StackTrace: f.StackTrace,
		})
	}
	status.Details = details
	return status
}
