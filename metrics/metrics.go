// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shifts_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shifts_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shifts_job_runs_total",
		Help: "Notification job runs by job and result",
	}, []string{"job", "result"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shifts_job_duration_seconds",
		Help:    "Duration of notification job runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})

	messagesProduced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shifts_messages_produced_total",
		Help: "Messages handed to the mailer, by job",
	}, []string{"job"})

	violationsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shifts_violations_detected_total",
		Help: "Compliance violations found, by kind and source",
	}, []string{"kind", "source"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveJobRun records a finished job run with a result label.
func ObserveJobRun(job, result string, duration time.Duration) {
	jobRuns.WithLabelValues(job, result).Inc()
	jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// AddMessages counts messages produced by a job.
func AddMessages(job string, n int) {
	if n <= 0 {
		return
	}
	messagesProduced.WithLabelValues(job).Add(float64(n))
}

// ObserveViolation counts one detected violation. Source is the caller:
// "editor", "check", or a job name.
func ObserveViolation(kind, source string) {
	violationsDetected.WithLabelValues(kind, source).Inc()
}
