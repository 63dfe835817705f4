package soap

import "encoding/xml"

// DeployOptions is the wire form of the deploy options, in the element
// order the Metadata API schema requires.
type DeployOptions struct {
	AllowMissingFiles bool     `xml:"allowMissingFiles"`
	CheckOnly         bool     `xml:"checkOnly"`
	IgnoreWarnings    bool     `xml:"ignoreWarnings"`
	PerformRetrieve   bool     `xml:"performRetrieve"`
	RollbackOnError   bool     `xml:"rollbackOnError"`
	RunTests          []string `xml:"runTests,omitempty"`
	SinglePackage     bool     `xml:"singlePackage"`
	TestLevel         string   `xml:"testLevel,omitempty"`
}

// DeployRequest is the body of a deploy call. ZipFile is base64 encoded.
type DeployRequest struct {
	XMLName xml.Name
	ZipFile string        `xml:"ZipFile"`
	Options DeployOptions `xml:"DeployOptions"`
}

// NewDeployRequest builds a deploy body for an already encoded archive.
func NewDeployRequest(zipFile string, opts DeployOptions) DeployRequest {
	return DeployRequest{
		XMLName: xml.Name{Space: MetadataNamespace, Local: "deploy"},
		ZipFile: zipFile,
		Options: opts,
	}
}

// CheckDeployStatusRequest is the body of a checkDeployStatus call.
type CheckDeployStatusRequest struct {
	XMLName        xml.Name
	AsyncProcessID string `xml:"asyncProcessId"`
	IncludeDetails bool   `xml:"includeDetails"`
}

// NewCheckDeployStatusRequest builds a checkDeployStatus body.
func NewCheckDeployStatusRequest(id string, includeDetails bool) CheckDeployStatusRequest {
	return CheckDeployStatusRequest{
		XMLName:        xml.Name{Space: MetadataNamespace, Local: "checkDeployStatus"},
		AsyncProcessID: id,
		IncludeDetails: includeDetails,
	}
}

// AsyncResult is returned by deploy.
type AsyncResult struct {
	ID         string `xml:"id"`
	Done       bool   `xml:"done"`
	State      string `xml:"state,omitempty"`
	StatusCode string `xml:"statusCode,omitempty"`
	Message    string `xml:"message,omitempty"`
}

// DeployResponse wraps the result of deploy.
type DeployResponse struct {
	XMLName xml.Name
	Result  AsyncResult `xml:"result"`
}

// NewDeployResponse wraps r for encoding.
func NewDeployResponse(r AsyncResult) DeployResponse {
	return DeployResponse{
		XMLName: xml.Name{Space: MetadataNamespace, Local: "deployResponse"},
		Result:  r,
	}
}

// DeployResult is returned by checkDeployStatus.
type DeployResult struct {
	ID                       string         `xml:"id"`
	Done                     bool           `xml:"done"`
	Success                  bool           `xml:"success"`
	Status                   string         `xml:"status"`
	ErrorStatusCode          string         `xml:"errorStatusCode,omitempty"`
	ErrorMessage             string         `xml:"errorMessage,omitempty"`
	NumberComponentsDeployed int            `xml:"numberComponentsDeployed"`
	NumberComponentErrors    int            `xml:"numberComponentErrors"`
	NumberComponentsTotal    int            `xml:"numberComponentsTotal"`
	NumberTestsCompleted     int            `xml:"numberTestsCompleted"`
	NumberTestErrors         int            `xml:"numberTestErrors"`
	NumberTestsTotal         int            `xml:"numberTestsTotal"`
	Details                  *DeployDetails `xml:"details,omitempty"`
}

// CheckDeployStatusResponse wraps the result of checkDeployStatus.
type CheckDeployStatusResponse struct {
	XMLName xml.Name
	Result  DeployResult `xml:"result"`
}

// NewCheckDeployStatusResponse wraps r for encoding.
func NewCheckDeployStatusResponse(r DeployResult) CheckDeployStatusResponse {
	return CheckDeployStatusResponse{
		XMLName: xml.Name{Space: MetadataNamespace, Local: "checkDeployStatusResponse"},
		Result:  r,
	}
}

// DeployDetails lists component failures and the test run result.
type DeployDetails struct {
	ComponentFailures []DeployMessage `xml:"componentFailures"`
	RunTestResult     RunTestsResult  `xml:"runTestResult"`
}

// DeployMessage describes one component. Line and column numbers are kept
// as text because the server omits them when unknown.
type DeployMessage struct {
	ComponentType string `xml:"componentType,omitempty"`
	FileName      string `xml:"fileName"`
	FullName      string `xml:"fullName"`
	LineNumber    string `xml:"lineNumber,omitempty"`
	ColumnNumber  string `xml:"columnNumber,omitempty"`
	Problem       string `xml:"problem,omitempty"`
	ProblemType   string `xml:"problemType,omitempty"`
	Success       bool   `xml:"success"`
}

// RunTestsResult summarizes tests run during a deployment.
type RunTestsResult struct {
	NumFailures int              `xml:"numFailures"`
	NumTestsRun int              `xml:"numTestsRun"`
	Failures    []RunTestFailure `xml:"failures"`
}

// RunTestFailure describes one failed test method.
type RunTestFailure struct {
	Message    string `xml:"message"`
	MethodName string `xml:"methodName"`
	Name       string `xml:"name"`
	Namespace  string `xml:"namespace,omitempty"`
	StackTrace string `xml:"stackTrace"`
}
