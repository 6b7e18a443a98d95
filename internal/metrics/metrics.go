// Package metrics provides the proxy's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LatencyBuckets spans short probes up to long non-streaming completions.
var LatencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}

var (
	// RequestsTotal counts chat completion calls by mode and final status code.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nim_proxy_requests_total",
			Help: "Chat completion requests",
		},
		[]string{"mode", "status"},
	)

	// ModelResolutionsTotal counts how each requested model name was resolved.
	ModelResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nim_proxy_model_resolutions_total",
			Help: "Model resolutions by source",
		},
		[]string{"source"},
	)

	// StreamFramesTotal counts processed stream frames by outcome.
	StreamFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nim_proxy_stream_frames_total",
			Help: "Stream frames by outcome",
		},
		[]string{"outcome"},
	)

	// UpstreamLatency records time to upstream response headers.
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nim_proxy_upstream_latency_seconds",
			Help:    "Upstream latency",
			Buckets: LatencyBuckets,
		},
		[]string{"operation"},
	)

	// ActiveStreams tracks streams currently being relayed.
	ActiveStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nim_proxy_active_streams",
			Help: "Active streaming responses",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		ModelResolutionsTotal,
		StreamFramesTotal,
		UpstreamLatency,
		ActiveStreams,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}
