package infrastructure

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dropvid/clip-processing-service/domain"
)

// PrometheusMetrics implements domain.PipelineMetrics on the default
// prometheus registry, exposed through the /metrics route.
type PrometheusMetrics struct {
	itemsTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	retriesTotal  *prometheus.CounterVec
}

func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		itemsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dropclip_pipeline_items_total",
			Help: "Batch items by final processing status",
		}, []string{"status"}),
		stageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dropclip_stage_duration_seconds",
			Help:    "Time spent per pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"stage"}),
		retriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dropclip_retry_attempts_total",
			Help: "Failed attempts seen by the retry policy, per operation",
		}, []string{"op"}),
	}
}

func (m *PrometheusMetrics) ItemProcessed(status domain.ProcessingStatus) {
	m.itemsTotal.WithLabelValues(string(status)).Inc()
}

func (m *PrometheusMetrics) StageObserved(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *PrometheusMetrics) RetryAttempted(op string) {
	m.retriesTotal.WithLabelValues(op).Inc()
}
