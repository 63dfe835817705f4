// Package soap is a minimal client for the two Metadata API calls used to
// deploy an archive: deploy and checkDeployStatus.
//
// The package speaks SOAP 1.1 over HTTP. Requests carry a SessionHeader
// with a session id obtained elsewhere; this package does not log in.
//
// The main components are:
//
//   - [Client]: HTTP transport with connection pooling, per-call timeouts
//     and a response size limit
//   - [Envelope], [Body], [Fault]: the envelope codec shared with the fake
//     server in internal/soaptest
//   - [DeployResult] and friends: wire representation of deploy results
//
// Users of the metadeploy library should not need to interact with this
// package directly. It is wrapped by metadeploy.NewSOAPConnection.
package soap
