package soaptest

import "github.com/jpalmerr/metadeploy/internal/soap"

// InProgress returns an unfinished result with optional failures so far.
func InProgress(details *soap.DeployDetails) soap.DeployResult {
	return soap.DeployResult{Status: "InProgress", Details: details}
}

// Succeeded returns a finished, successful result.
func Succeeded() soap.DeployResult {
	return soap.DeployResult{Done: true, Success: true, Status: "Succeeded"}
}

// Failed returns a finished, unsuccessful result carrying details.
func Failed(details *soap.DeployDetails) soap.DeployResult {
	r := soap.DeployResult{Done: true, Status: "Failed", Details: details}
	if details != nil {
		r.NumberComponentErrors = len(details.ComponentFailures)
		r.NumberTestErrors = len(details.RunTestResult.Failures)
	}
	return r
}

// Aborted returns a finished result carrying an explicit error code.
func Aborted(code, message string) soap.DeployResult {
	return soap.DeployResult{
		Done:            true,
		Status:          "Failed",
		ErrorStatusCode: code,
		ErrorMessage:    message,
	}
}

// ComponentFailure returns details holding a single component failure.
func ComponentFailure(fileName, line, column, problem string) *soap.DeployDetails {
	return &soap.DeployDetails{
		ComponentFailures: []soap.DeployMessage{{
			FileName:     fileName,
			FullName:     fileName,
			LineNumber:   line,
			ColumnNumber: column,
			Problem:      problem,
			ProblemType:  "Error",
		}},
	}
}
