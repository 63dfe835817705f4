package metadeploy

// JobID identifies an in-flight remote deployment.
//
// A JobID is returned by [Deployer.Submit] and is only meaningful to the
// platform that issued it. It is discarded once the job reports done.
type JobID string

// String returns the identifier as a string.
func (id JobID) String() string {
	return string(id)
}

// State is the platform-reported lifecycle state of a deployment.
type State string

const (
	StatePending          State = "Pending"
	StateInProgress       State = "InProgress"
	StateSucceeded        State = "Succeeded"
	StateSucceededPartial State = "SucceededPartial"
	StateFailed           State = "Failed"
	StateCanceling        State = "Canceling"
	StateCanceled         State = "Canceled"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// TestLevel selects which tests the platform runs as part of a deployment.
type TestLevel string

const (
	TestLevelDefault           TestLevel = ""
	TestLevelNoTestRun         TestLevel = "NoTestRun"
	TestLevelRunSpecifiedTests TestLevel = "RunSpecifiedTests"
	TestLevelRunLocalTests     TestLevel = "RunLocalTests"
	TestLevelRunAllTestsInOrg  TestLevel = "RunAllTestsInOrg"
)

// Valid reports whether the level is one the platform accepts.
func (l TestLevel) Valid() bool {
	switch l {
	case TestLevelDefault, TestLevelNoTestRun, TestLevelRunSpecifiedTests,
		TestLevelRunLocalTests, TestLevelRunAllTestsInOrg:
		return true
	default:
		return false
	}
}

// DeployOptions controls how the platform applies a deployment.
//
// The zero value is not what most callers want; use [DefaultDeployOptions],
// which disables retrieve and enables rollback on error.
type DeployOptions struct {
	// PerformRetrieve asks the platform to run a retrieve after deploying.
	PerformRetrieve bool

	// RollbackOnError discards the whole deployment if any component fails.
	RollbackOnError bool

	// CheckOnly validates the deployment without saving any component.
	CheckOnly bool

	// IgnoreWarnings lets the deployment succeed despite warnings.
	IgnoreWarnings bool

	// SinglePackage indicates the archive holds one package at its root.
	SinglePackage bool

	// AllowMissingFiles tolerates files named in the manifest but absent
	// from the archive.
	AllowMissingFiles bool

	// TestLevel selects which tests run. Empty leaves the platform default.
	TestLevel TestLevel

	// RunTests names the test classes to run for [TestLevelRunSpecifiedTests].
	RunTests []string
}

// DefaultDeployOptions returns the options used when none are configured.
func DefaultDeployOptions() DeployOptions {
	return DeployOptions{
		PerformRetrieve: false,
		RollbackOnError: true,
	}
}

// DeployStatus is the outcome of one status query.
//
// Details is only populated when the query asked for detail and the
// platform had something to report.
type DeployStatus struct {
	ID      JobID
	Done    bool
	Success bool
	State   State

	// ErrorCode and ErrorMessage are set when the platform aborted the job
	// with an explicit error (for example an expired session).
	ErrorCode    string
	ErrorMessage string

	ComponentsDeployed int
	ComponentErrors    int
	ComponentsTotal    int
	TestsCompleted     int
	TestErrors         int
	TestsTotal         int

	Details *DeployDetails
}

// HasErrorCode reports whether the platform attached an explicit error code.
func (s DeployStatus) HasErrorCode() bool {
	return s.ErrorCode != ""
}

// DeployDetails carries the per-component and per-test failures of a job,
// in the order the platform returned them.
type DeployDetails struct {
	ComponentFailures []ComponentFailure
	RunTestResult     RunTestResult
}

// RunTestResult summarizes the test run attached to a deployment.
type RunTestResult struct {
	NumTestsRun int
	NumFailures int
	Failures    []TestFailure
}

// ComponentFailure describes one component the platform could not deploy.
//
// Line and Column are kept as text; empty means the platform did not
// report a position.
type ComponentFailure struct {
	FileName      string
	FullName      string
	ComponentType string
	Line          string
	Column        string
	Problem       string
	ProblemType   string
}

// TestFailure describes one failing test method.
//
// Namespace is empty for tests outside a managed namespace.
type TestFailure struct {
	Namespace  string
	Name       string
	MethodName string
	Message    string
	StackTrace string
}

// failureCounts returns the number of component and test failures in s.
func (s DeployStatus) failureCounts() (components, tests int) {
	if s.Details == nil {
		return 0, 0
	}
	return len(s.Details.ComponentFailures), len(s.Details.RunTestResult.Failures)
}
