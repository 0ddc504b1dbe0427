// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the orchestrator.
package observability

import "github.com/prometheus/client_golang/prometheus"

// CompletionBuckets defines histogram buckets suited for completion
// latencies, ranging from 100ms to 120s.
var CompletionBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// ResourceBuckets covers a bridge round trip including subprocess startup.
var ResourceBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

var (
	// RequestsTotal counts HTTP requests by method, route, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orch_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orch_request_duration_seconds",
			Help:    "Request duration",
			Buckets: CompletionBuckets,
		},
		[]string{"method", "route"},
	)

	// CompletionRequestsTotal counts calls to the completion service.
	CompletionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orch_completion_requests_total",
			Help: "Completion requests",
		},
		[]string{"status"},
	)

	// CompletionLatency records completion service latency in seconds.
	CompletionLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orch_completion_latency_seconds",
			Help:    "Completion latency",
			Buckets: CompletionBuckets,
		},
	)

	// ResourceOperationsTotal counts resource bridge operations by kind
	// (list, read) and outcome.
	ResourceOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orch_resource_operations_total",
			Help: "Resource bridge operations",
		},
		[]string{"operation", "status"},
	)

	// ResourceOperationDuration records the duration of one bridge
	// operation, from connect to teardown.
	ResourceOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orch_resource_operation_duration_seconds",
			Help:    "Resource bridge operation duration",
			Buckets: ResourceBuckets,
		},
		[]string{"operation"},
	)

	// JournalErrorsTotal counts failed journal writes and reads.
	JournalErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orch_journal_errors_total",
			Help: "Journal errors",
		},
		[]string{"operation"},
	)

	// AuthRejectedTotal counts requests rejected by the auth middleware.
	AuthRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orch_auth_rejected_total",
			Help: "Auth rejections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		CompletionRequestsTotal,
		CompletionLatency,
		ResourceOperationsTotal,
		ResourceOperationDuration,
		JournalErrorsTotal,
		AuthRejectedTotal,
	)
}
