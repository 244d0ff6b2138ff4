package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	JobsEnqueued     *prometheus.CounterVec
	JobsProcessed    *prometheus.CounterVec
	JobDuration      *prometheus.HistogramVec
	ChatwootRequests *prometheus.CounterVec
	ChatwootLatency  *prometheus.HistogramVec
	WAHARequests     *prometheus.CounterVec
	WAHALatency      *prometheus.HistogramVec
	MutexWait        *prometheus.HistogramVec
	CacheHits        *prometheus.CounterVec
	Errors           *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			JobsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_enqueued_total",
				Help:      "Total jobs enqueued by queue.",
			}, []string{"queue"}),
			JobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_processed_total",
				Help:      "Total jobs processed by queue and outcome.",
			}, []string{"queue", "outcome"}),
			JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Job processing duration by queue.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"queue"}),
			ChatwootRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chatwoot_requests_total",
				Help:      "Total Chatwoot API requests by endpoint and status.",
			}, []string{"endpoint", "status"}),
			ChatwootLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chatwoot_request_duration_seconds",
				Help:      "Latency distribution for Chatwoot API requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"endpoint", "status"}),
			WAHARequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "waha_requests_total",
				Help:      "Total WAHA API requests by endpoint and status.",
			}, []string{"endpoint", "status"}),
			WAHALatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "waha_request_duration_seconds",
				Help:      "Latency distribution for WAHA API requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"endpoint", "status"}),
			MutexWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chat_mutex_wait_seconds",
				Help:      "Time spent waiting for the per-chat mutex.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"queue"}),
			CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversation_cache_total",
				Help:      "Conversation cache lookups by result.",
			}, []string{"result"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.JobsEnqueued,
			metricsInstance.JobsProcessed,
			metricsInstance.JobDuration,
			metricsInstance.ChatwootRequests,
			metricsInstance.ChatwootLatency,
			metricsInstance.WAHARequests,
			metricsInstance.WAHALatency,
			metricsInstance.MutexWait,
			metricsInstance.CacheHits,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}
