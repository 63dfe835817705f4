package main

import (
	"log/slog"

	"github.com/jpalmerr/metadeploy/internal/soap"
	"github.com/jpalmerr/metadeploy/internal/soaptest"
)

// demoScript returns a deployment that runs for a few polls, reports a test
// failure while still running and finally fails on one component.
func demoScript() []soap.DeployResult {
	testFailure := &soap.DeployDetails{
		RunTestResult: soap.RunTestsResult{
			NumTestsRun: 4,
			NumFailures: 1,
			Failures: []soap.RunTestFailure{{
				Namespace:  "acme",
				Name:       "InvoiceTest",
				MethodName: "testTotals",
				Message:    "System.AssertException: Assertion Failed: Expected: 10, Actual: 9",
				StackTrace: "Class.acme.InvoiceTest.testTotals: line 42, column 1",
			}},
		},
	}

	final := soaptest.Failed(&soap.DeployDetails{
		ComponentFailures: []soap.DeployMessage{
			{
				ComponentType: "ApexClass",
				FileName:      "classes/Invoice.cls",
				FullName:      "Invoice",
				LineNumber:    "17",
				ColumnNumber:  "9",
				Problem:       "Variable does not exist: total",
				ProblemType:   "Error",
			},
			{
				ComponentType: "CustomObject",
				FileName:      "package.xml",
				FullName:      "Invoice__c",
				Problem:       "Entity type cannot be found",
				ProblemType:   "Error",
			},
		},
		RunTestResult: testFailure.RunTestResult,
	})
	final.NumberComponentsTotal = 12
	final.NumberComponentsDeployed = 10

	running := func(deployed, tests int, details *soap.DeployDetails) soap.DeployResult {
		r := soaptest.InProgress(details)
		r.NumberComponentsTotal = 12
		r.NumberComponentsDeployed = deployed
		r.NumberTestsTotal = 4
		r.NumberTestsCompleted = tests
		return r
	}

	return []soap.DeployResult{
		running(2, 0, nil),
		running(6, 0, nil),
		running(10, 2, testFailure),
		running(10, 4, testFailure),
		final,
	}
}

// StartMockMetadataServer starts an in-process Metadata API replaying the
// demo script. Callers must Close the returned server.
func StartMockMetadataServer(logger *slog.Logger) *soaptest.Server {
	return soaptest.NewServer(
		soaptest.WithJobID("0Af5g00000DemoAAA"),
		soaptest.WithScript(demoScript()...),
		soaptest.WithLogger(logger),
	)
}
