package soap

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// deploy results with full details can be large for big packages
const maxResponseBodySize = 32 << 20 // 32MB

const (
	defaultAPIVersion     = "59.0"
	defaultTimeout        = 2 * time.Minute
	defaultMaxIdleConns   = 10
	defaultIdleConnTimout = 90 * time.Second
)

// Config holds the connection settings for a [Client].
type Config struct {
	// InstanceURL is the base URL of the org, e.g. https://example.my.salesforce.com.
	InstanceURL string

	// APIVersion is the Metadata API version. Defaults to 59.0.
	APIVersion string

	// SessionID authorizes every call. It is not validated here.
	SessionID string

	// Timeout bounds a single call. Defaults to 2 minutes.
	Timeout time.Duration
}

// Client issues Metadata API calls over a single pooled HTTP client.
//
// Timeouts are applied per call via the context rather than on the
// underlying http.Client.
type Client struct {
	endpoint   string
	sessionID  string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a [Client] for cfg.
//
// Returns an error if the instance URL is missing or not http(s).
func NewClient(cfg Config) (*Client, error) {
	if cfg.InstanceURL == "" {
		return nil, errors.New("instance URL is required")
	}
	u, err := url.Parse(cfg.InstanceURL)
	if err != nil {
		return nil, fmt.Errorf("invalid instance URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("instance URL scheme must be http or https, got %q", u.Scheme)
	}

	version := cfg.APIVersion
	if version == "" {
		version = defaultAPIVersion
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		endpoint:  strings.TrimRight(cfg.InstanceURL, "/") + "/services/Soap/m/" + version,
		sessionID: cfg.SessionID,
		timeout:   timeout,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConns,
				IdleConnTimeout:     defaultIdleConnTimout,
			},
		},
	}, nil
}

// Endpoint returns the URL every call is posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Deploy submits a zip archive and returns the async result.
func (c *Client) Deploy(ctx context.Context, zip []byte, opts DeployOptions) (AsyncResult, error) {
	req := NewDeployRequest(base64.StdEncoding.EncodeToString(zip), opts)

	var resp DeployResponse
	if err := c.call(ctx, req, &resp); err != nil {
		return AsyncResult{}, fmt.Errorf("deploy: %w", err)
	}
	return resp.Result, nil
}

// CheckDeployStatus returns the current result of the deployment id.
func (c *Client) CheckDeployStatus(ctx context.Context, id string, includeDetails bool) (DeployResult, error) {
	req := NewCheckDeployStatusRequest(id, includeDetails)

	var resp CheckDeployStatusResponse
	if err := c.call(ctx, req, &resp); err != nil {
		return DeployResult{}, fmt.Errorf("checkDeployStatus: %w", err)
	}
	return resp.Result, nil
}

// call posts body and decodes the response into out. A fault in the
// response is returned as a *Fault regardless of the HTTP status.
func (c *Client) call(ctx context.Context, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := EncodeEnvelope(&Header{Session: &SessionHeader{SessionID: c.sessionID}}, body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `""`)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	env, err := DecodeEnvelope(data)
	if err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return err
	}
	if env.Body.Fault != nil {
		return env.Body.Fault
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return env.Body.Decode(out)
}

// Close closes idle connections. The client remains usable afterwards.
// Safe to call on a nil client.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
