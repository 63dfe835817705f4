// Package soaptest provides a scripted, in-process Metadata API server for
// tests and demos.
//
// The server answers deploy and checkDeployStatus calls. Status replies are
// taken from a script in order; once the script is exhausted the last entry
// is repeated. Every call is recorded so tests can assert on what the
// client sent.
package soaptest

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jpalmerr/metadeploy/internal/soap"
)

// DefaultJobID is the job id returned by deploy unless overridden.
const DefaultJobID = "0Af000000000001AAA"

// Server is a fake Metadata API endpoint backed by [httptest.Server].
type Server struct {
	// URL is the instance URL to configure clients with.
	URL string

	srv    *httptest.Server
	router chi.Router
	logger *slog.Logger

	mu          sync.Mutex
	jobID       string
	script      []soap.DeployResult
	next        int
	fault       *soap.Fault
	deploys     []soap.DeployRequest
	detailFlags []bool
	sessionIDs  []string
	versions    []string
}

// Option configures a [Server].
type Option func(*Server)

// WithJobID sets the id returned by deploy.
func WithJobID(id string) Option {
	return func(s *Server) {
		s.jobID = id
	}
}

// WithScript sets the status replies returned by checkDeployStatus, in order.
func WithScript(results ...soap.DeployResult) Option {
	return func(s *Server) {
		s.script = append(s.script, results...)
	}
}

// WithFault makes every call fail with f.
func WithFault(f soap.Fault) Option {
	return func(s *Server) {
		s.fault = &f
	}
}

// WithLogger sets the logger used for request logs. Defaults to discarding.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer starts a fake server on a loopback port. Callers must call
// [Server.Close].
//
// Without a script the server reports a successful, finished deployment.
func NewServer(opts ...Option) *Server {
	s := NewHandler(opts...)
	s.srv = httptest.NewServer(s)
	s.URL = s.srv.URL
	return s
}

// NewHandler builds a fake server without starting a listener, for callers
// that serve it themselves. URL is left empty.
func NewHandler(opts ...Option) *Server {
	s := &Server{
		jobID:  DefaultJobID,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.script) == 0 {
		s.script = []soap.DeployResult{Succeeded()}
	}

	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Post("/services/Soap/m/{version}", s.handle)
	s.router = r
	return s
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close shuts the listener down, if one was started.
func (s *Server) Close() {
	if s.srv != nil {
		s.srv.Close()
	}
}

// Deploys returns every deploy request received.
func (s *Server) Deploys() []soap.DeployRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]soap.DeployRequest(nil), s.deploys...)
}

// DetailFlags returns the includeDetails flag of every checkDeployStatus
// call, in order.
func (s *Server) DetailFlags() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.detailFlags...)
}

// SessionIDs returns the session id sent with every call.
func (s *Server) SessionIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sessionIDs...)
}

// APIVersions returns the API version in the path of every call.
func (s *Server) APIVersions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.versions...)
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		s.logger.Debug("soap request", "request_id", reqID, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeFault(w, soap.Fault{Code: "soapenv:Client", String: err.Error()})
		return
	}
	env, err := soap.DecodeEnvelope(data)
	if err != nil {
		s.writeFault(w, soap.Fault{Code: "soapenv:Client", String: err.Error()})
		return
	}
	name, err := env.Body.Name()
	if err != nil {
		s.writeFault(w, soap.Fault{Code: "soapenv:Client", String: err.Error()})
		return
	}

	s.mu.Lock()
	s.versions = append(s.versions, chi.URLParam(r, "version"))
	if env.Header != nil && env.Header.Session != nil {
		s.sessionIDs = append(s.sessionIDs, env.Header.Session.SessionID)
	} else {
		s.sessionIDs = append(s.sessionIDs, "")
	}
	fault := s.fault
	s.mu.Unlock()

	if fault != nil {
		s.writeFault(w, *fault)
		return
	}

	switch name.Local {
	case "deploy":
		s.handleDeploy(w, env)
	case "checkDeployStatus":
		s.handleCheckDeployStatus(w, env)
	default:
		s.writeFault(w, soap.Fault{Code: "sf:INVALID_OPERATION", String: "unsupported operation " + name.Local})
	}
}

func (s *Server) handleDeploy(w http.ResponseWriter, env *soap.Envelope) {
	var req soap.DeployRequest
	if err := env.Body.Decode(&req); err != nil {
		s.writeFault(w, soap.Fault{Code: "soapenv:Client", String: err.Error()})
		return
	}

	s.mu.Lock()
	s.deploys = append(s.deploys, req)
	id := s.jobID
	s.mu.Unlock()

	s.writeResponse(w, soap.NewDeployResponse(soap.AsyncResult{ID: id, State: "Queued"}))
}

func (s *Server) handleCheckDeployStatus(w http.ResponseWriter, env *soap.Envelope) {
	var req soap.CheckDeployStatusRequest
	if err := env.Body.Decode(&req); err != nil {
		s.writeFault(w, soap.Fault{Code: "soapenv:Client", String: err.Error()})
		return
	}

	s.mu.Lock()
	s.detailFlags = append(s.detailFlags, req.IncludeDetails)
	result := s.script[s.next]
	if s.next < len(s.script)-1 {
		s.next++
	}
	s.mu.Unlock()

	result.ID = req.AsyncProcessID
	if !req.IncludeDetails {
		result.Details = nil
	}
	s.writeResponse(w, soap.NewCheckDeployStatusResponse(result))
}

func (s *Server) writeResponse(w http.ResponseWriter, content any) {
	body, err := soap.EncodeEnvelope(nil, content)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	_, _ = w.Write(body)
}

func (s *Server) writeFault(w http.ResponseWriter, f soap.Fault) {
	body, err := soap.EncodeFault(f)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write(body)
}
