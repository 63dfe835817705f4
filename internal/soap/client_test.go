package soap_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/metadeploy/internal/soap"
	"github.com/jpalmerr/metadeploy/internal/soaptest"
)

func newClient(t *testing.T, url string) *soap.Client {
	t.Helper()

	c, err := soap.NewClient(soap.Config{InstanceURL: url, SessionID: "sess-1", Timeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestNewClient(t *testing.T) {
	c, err := soap.NewClient(soap.Config{InstanceURL: "https://example.my.salesforce.com/"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.my.salesforce.com/services/Soap/m/59.0", c.Endpoint())

	c, err = soap.NewClient(soap.Config{InstanceURL: "https://example.my.salesforce.com", APIVersion: "61.0"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.my.salesforce.com/services/Soap/m/61.0", c.Endpoint())
}

func TestNewClient_Invalid(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"bad scheme", "ftp://example.com"},
		{"unparseable", "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := soap.NewClient(soap.Config{InstanceURL: tt.url})
			assert.Error(t, err)
		})
	}
}

func TestClient_Deploy(t *testing.T) {
	srv := soaptest.NewServer(soaptest.WithJobID("0AfABC"))
	defer srv.Close()
	c := newClient(t, srv.URL)

	result, err := c.Deploy(context.Background(), []byte("hello"), soap.DeployOptions{RollbackOnError: true})
	require.NoError(t, err)
	assert.Equal(t, "0AfABC", result.ID)
	assert.Equal(t, "Queued", result.State)

	deploys := srv.Deploys()
	require.Len(t, deploys, 1)
	assert.Equal(t, "aGVsbG8=", deploys[0].ZipFile)
	assert.True(t, deploys[0].Options.RollbackOnError)
	assert.Equal(t, []string{"sess-1"}, srv.SessionIDs())
}

func TestClient_CheckDeployStatus(t *testing.T) {
	srv := soaptest.NewServer(soaptest.WithScript(
		soaptest.InProgress(nil),
		soaptest.Succeeded(),
	))
	defer srv.Close()
	c := newClient(t, srv.URL)

	first, err := c.CheckDeployStatus(context.Background(), "0Af1", false)
	require.NoError(t, err)
	assert.False(t, first.Done)
	assert.Equal(t, "InProgress", first.Status)
	assert.Equal(t, "0Af1", first.ID)

	second, err := c.CheckDeployStatus(context.Background(), "0Af1", true)
	require.NoError(t, err)
	assert.True(t, second.Done)
	assert.True(t, second.Success)

	// script exhausted, last entry repeats
	third, err := c.CheckDeployStatus(context.Background(), "0Af1", false)
	require.NoError(t, err)
	assert.True(t, third.Success)

	assert.Equal(t, []bool{false, true, false}, srv.DetailFlags())
}

func TestClient_Fault(t *testing.T) {
	srv := soaptest.NewServer(soaptest.WithFault(soap.Fault{Code: "sf:INVALID_SESSION_ID", String: "expired"}))
	defer srv.Close()
	c := newClient(t, srv.URL)

	_, err := c.Deploy(context.Background(), []byte("x"), soap.DeployOptions{})
	require.Error(t, err)

	var fault *soap.Fault
	require.True(t, errors.As(err, &fault), "error should be a *soap.Fault: %v", err)
	assert.Equal(t, "sf:INVALID_SESSION_ID", fault.Code)
	assert.Contains(t, err.Error(), "deploy:")
}

func TestClient_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()
	c := newClient(t, srv.URL)

	_, err := c.CheckDeployStatus(context.Background(), "0Af1", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestClient_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()
	c := newClient(t, srv.URL)

	_, err := c.CheckDeployStatus(context.Background(), "0Af1", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse envelope")
}

func TestClient_RequestHeaders(t *testing.T) {
	var contentType, action string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		action = r.Header.Get("SOAPAction")
		body, _ := soap.EncodeEnvelope(nil, soap.NewDeployResponse(soap.AsyncResult{ID: "0Af1"}))
		_, _ = w.Write(body)
	}))
	defer srv.Close()
	c := newClient(t, srv.URL)

	_, err := c.Deploy(context.Background(), []byte("x"), soap.DeployOptions{})
	require.NoError(t, err)
	assert.Equal(t, "text/xml; charset=utf-8", contentType)
	assert.Equal(t, `""`, action)
}

func TestClient_ContextCanceled(t *testing.T) {
	srv := soaptest.NewServer()
	defer srv.Close()
	c := newClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.CheckDeployStatus(ctx, "0Af1", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_CloseNil(t *testing.T) {
	var c *soap.Client
	assert.NotPanics(t, c.Close)
}
