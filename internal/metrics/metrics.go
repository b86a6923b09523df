// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector exported by the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// HttpRequestsTotal counts HTTP requests by path, method and status code.
	HttpRequestsTotal *prometheus.CounterVec

	// TaskExecutionTotal counts task executions by task name and final status.
	TaskExecutionTotal *prometheus.CounterVec

	JobsSubmitted prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsFailed    prometheus.Counter
	JobsRejected  prometheus.Counter
	IdleWorkers   prometheus.Gauge
	PendingJobs   prometheus.Gauge
	JobDuration   prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HttpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of http requests handled by the service.",
			},
			[]string{"path", "method", "code"},
		),
		TaskExecutionTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "task_executions_total",
				Help: "Total number of task executions.",
			},
			[]string{"task_name", "status"},
		),
		JobsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "pool_jobs_submitted_total",
			Help: "Total number of jobs accepted by the dispatcher.",
		}),
		JobsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "pool_jobs_completed_total",
			Help: "Total number of jobs that returned normally.",
		}),
		JobsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "pool_jobs_failed_total",
			Help: "Total number of jobs that panicked.",
		}),
		JobsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "pool_jobs_rejected_total",
			Help: "Total number of jobs refused because the pool was draining.",
		}),
		IdleWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pool_idle_workers",
			Help: "Number of workers without an assigned job.",
		}),
		PendingJobs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pool_pending_jobs",
			Help: "Number of jobs queued for a free worker.",
		}),
		JobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pool_job_duration_seconds",
			Help:    "Time spent executing a job.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncJobsSubmitted() {
	if m != nil {
		m.JobsSubmitted.Inc()
	}
}

func (m *Metrics) IncJobsCompleted() {
	if m != nil {
		m.JobsCompleted.Inc()
	}
}

func (m *Metrics) IncJobsFailed() {
	if m != nil {
		m.JobsFailed.Inc()
	}
}

func (m *Metrics) IncJobsRejected() {
	if m != nil {
		m.JobsRejected.Inc()
	}
}

// SetPoolGauges publishes the dispatcher's idle and pending counts.
func (m *Metrics) SetPoolGauges(idle, pending int) {
	if m != nil {
		m.IdleWorkers.Set(float64(idle))
		m.PendingJobs.Set(float64(pending))
	}
}

func (m *Metrics) ObserveJobDuration(d time.Duration) {
	if m != nil {
		m.JobDuration.Observe(d.Seconds())
	}
}

// RecordTaskExecution counts a finished task run.
func (m *Metrics) RecordTaskExecution(taskName, status string) {
	if m != nil {
		m.TaskExecutionTotal.WithLabelValues(taskName, status).Inc()
	}
}

// RecordHTTPRequest counts a handled HTTP request.
func (m *Metrics) RecordHTTPRequest(path, method, code string) {
	if m != nil {
		m.HttpRequestsTotal.WithLabelValues(path, method, code).Inc()
	}
}
