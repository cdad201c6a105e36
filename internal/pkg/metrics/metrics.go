// Package metrics provides Prometheus metrics definitions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "statuspage"

// Check results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	// HTTPRequestDuration tracks preview server request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route", "status_code"},
	)

	// CheckTotal counts status checks against the monitoring backend.
	CheckTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_total",
			Help:      "Total number of service status checks by result",
		},
		[]string{"result"},
	)

	// CheckDuration tracks the latency of a single status check.
	CheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Service status check duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// ServiceStatus is 1 for the current status of each service and 0 otherwise.
	ServiceStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_status",
			Help:      "Current status of a service",
		},
		[]string{"service", "status"},
	)

	// GenerateTotal counts page generations by result.
	GenerateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generate_total",
			Help:      "Total number of status page generations by result",
		},
		[]string{"result"},
	)

	// GenerateDuration tracks how long a full generation takes.
	GenerateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generate_duration_seconds",
			Help:      "Status page generation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// IncidentsRendered is the number of incidents on the last generated page.
	IncidentsRendered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "incidents_rendered",
			Help:      "Number of incidents included in the last generated page",
		},
	)
)

// RecordServiceStatus sets the status gauge for a service. statuses is the full vocabulary.
func RecordServiceStatus(service, current string, statuses []string) {
	for _, status := range statuses {
		value := 0.0
		if status == current {
			value = 1
		}
		ServiceStatus.WithLabelValues(service, status).Set(value)
	}
}
