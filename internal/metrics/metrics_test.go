package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func family(t *testing.T, m *Metrics, name string) *dto.MetricFamily {
	t.Helper()

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric family %q not gathered", name)
	return nil
}

func TestRecordPoll(t *testing.T) {
	m := New()

	m.RecordPoll(false)
	m.RecordPoll(false)
	m.RecordPoll(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.polls.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues("true")))
}

func TestRecordFailures(t *testing.T) {
	m := New()

	m.RecordFailures(3, 1)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.componentFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.testFailures))

	m.RecordFailures(0, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.componentFailures))
}

func TestRecordResult(t *testing.T) {
	m := New()

	m.RecordResult(OutcomeFailed, 42*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.deployments.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.deployments.WithLabelValues(OutcomeSucceeded)))

	hist := family(t, m, "metadeploy_deploy_duration_seconds").GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(1), hist.GetSampleCount())
	assert.InDelta(t, 42.0, hist.GetSampleSum(), 0.001)
}

func TestRegistry_GathersAllCollectors(t *testing.T) {
	m := New()
	m.RecordPoll(true)
	m.RecordResult(OutcomeSucceeded, time.Second)

	for _, name := range []string{
		"metadeploy_polls_total",
		"metadeploy_deployments_total",
		"metadeploy_deploy_duration_seconds",
		"metadeploy_component_failures",
		"metadeploy_test_failures",
	} {
		assert.NotNil(t, family(t, m, name), name)
	}
}

func TestPush(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, path, body = r.Method, r.URL.Path, string(data)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.RecordResult(OutcomeSucceeded, time.Second)

	err := m.Push(context.Background(), srv.URL, "metadeploy", map[string]string{"instance": "ci"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/metadeploy/instance/ci", path)
	assert.NotEmpty(t, body)
}

func TestPush_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := New().Push(context.Background(), srv.URL, "metadeploy", nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to push metrics"), err.Error())
}
