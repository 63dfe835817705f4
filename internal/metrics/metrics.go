// Package metrics records deployment metrics and pushes them to a
// Prometheus Pushgateway.
//
// A deploy run is a short-lived batch job, so metrics are gathered into a
// private registry and pushed once at the end rather than scraped.
package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Outcome labels for the deployments counter.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeRemote    = "remote_error"
	OutcomeTimeout   = "timeout"
	OutcomeTransport = "transport_error"
	OutcomeCanceled  = "canceled"
)

// Metrics holds the collectors for one deploy run.
type Metrics struct {
	registry *prometheus.Registry

	polls             *prometheus.CounterVec
	deployments       *prometheus.CounterVec
	duration          prometheus.Histogram
	componentFailures prometheus.Gauge
	testFailures      prometheus.Gauge
}

// New creates and registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metadeploy_polls_total",
			Help: "Status queries made while waiting for a deployment.",
		}, []string{"details"}),
		deployments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metadeploy_deployments_total",
			Help: "Finished deployments by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "metadeploy_deploy_duration_seconds",
			Help:    "Time from submission to final result.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}),
		componentFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "metadeploy_component_failures",
			Help: "Component failures in the last status with details.",
		}),
		testFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "metadeploy_test_failures",
			Help: "Test failures in the last status with details.",
		}),
	}

	m.registry.MustRegister(m.polls, m.deployments, m.duration, m.componentFailures, m.testFailures)
	return m
}

// Registry returns the registry holding all collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordPoll counts one status query.
func (m *Metrics) RecordPoll(details bool) {
	m.polls.WithLabelValues(strconv.FormatBool(details)).Inc()
}

// RecordFailures sets the failure gauges from a detailed status.
func (m *Metrics) RecordFailures(components, tests int) {
	m.componentFailures.Set(float64(components))
	m.testFailures.Set(float64(tests))
}

// RecordResult counts a finished deployment and observes its duration.
func (m *Metrics) RecordResult(outcome string, elapsed time.Duration) {
	m.deployments.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// Push sends every collector to the Pushgateway at url under job,
// replacing metrics previously pushed for the same job and grouping.
func (m *Metrics) Push(ctx context.Context, url, job string, grouping map[string]string) error {
	pusher := push.New(url, job).Gatherer(m.registry)
	for k, v := range grouping {
		pusher = pusher.Grouping(k, v)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
