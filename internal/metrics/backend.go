package metrics

import "github.com/prometheus/client_golang/prometheus"

// Backend and blend Prometheus metrics.
var (
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blendex",
			Name:      "backend_requests_total",
			Help:      "Total number of search backend calls",
		},
		[]string{"backend", "driver", "op", "status"},
	)

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "blendex",
			Name:      "backend_request_duration_seconds",
			Help:      "Search backend call duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"backend", "driver", "op"},
	)

	BlendRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blendex",
			Name:      "blend_records_total",
			Help:      "Records returned in blended windows by source",
		},
		[]string{"source"},
	)

	RecordCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blendex",
			Name:      "record_cache_total",
			Help:      "Retrieve cache hits and misses",
		},
		[]string{"backend", "result"},
	)
)

var backendMetricsRegistered bool

// RegisterBackendMetrics registers backend and blend metrics. Must be called once from main.
func RegisterBackendMetrics() {
	if backendMetricsRegistered {
		return
	}
	prometheus.MustRegister(BackendRequestsTotal)
	prometheus.MustRegister(BackendRequestDuration)
	prometheus.MustRegister(BlendRecordsTotal)
	prometheus.MustRegister(RecordCacheTotal)
	backendMetricsRegistered = true
}

// WindowRecorder counts blended window records by source.
type WindowRecorder struct{}

// ObserveWindow adds the window's per-source record counts.
func (WindowRecorder) ObserveWindow(primary, secondary int) {
	BlendRecordsTotal.WithLabelValues("primary").Add(float64(primary))
	BlendRecordsTotal.WithLabelValues("secondary").Add(float64(secondary))
}
