package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	chatRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_requests_total",
		Help: "Chat requests by terminal outcome",
	}, []string{"outcome"})

	inferenceFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inference_failures_total",
		Help: "Completion calls absorbed into the fallback reply",
	}, []string{"reason"})

	inferenceDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "inference_duration_seconds",
		Help:    "Completion call latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})

	documentsUploadedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "documents_uploaded_total",
		Help: "Documents stored successfully",
	})

	documentsDeletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "documents_deleted_total",
		Help: "Documents processed by delete-all, by result",
	}, []string{"result"})
)

func init() {
	registry.MustRegister(
		chatRequestsTotal,
		inferenceFailuresTotal,
		inferenceDuration,
		documentsUploadedTotal,
		documentsDeletedTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IncChatOutcome counts a chat request that ended in outcome.
func IncChatOutcome(outcome string) {
	chatRequestsTotal.WithLabelValues(outcome).Inc()
}

// IncInferenceFailure counts an absorbed completion failure.
func IncInferenceFailure(reason string) {
	inferenceFailuresTotal.WithLabelValues(reason).Inc()
}

// ObserveInferenceDuration records a completion call latency.
func ObserveInferenceDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	inferenceDuration.Observe(d.Seconds())
}

// IncDocumentsUploaded counts a stored document.
func IncDocumentsUploaded() {
	documentsUploadedTotal.Inc()
}

// AddDocumentsDeleted records delete-all results.
func AddDocumentsDeleted(deleted, failed int) {
	if deleted > 0 {
		documentsDeletedTotal.WithLabelValues("deleted").Add(float64(deleted))
	}
	if failed > 0 {
		documentsDeletedTotal.WithLabelValues("failed").Add(float64(failed))
	}
}

// Registry exposes the collectors for tests and custom exporters.
func Registry() *prometheus.Registry {
	return registry
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
