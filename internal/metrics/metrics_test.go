package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsExposed(t *testing.T) {
	RequestsTotal.WithLabelValues("stream", "200").Inc()
	ModelResolutionsTotal.WithLabelValues("mapping").Inc()
	StreamFramesTotal.WithLabelValues("rewritten").Inc()
	UpstreamLatency.WithLabelValues("chat").Observe(0.2)
	ActiveStreams.Set(0)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	for _, name := range []string{
		"nim_proxy_requests_total",
		"nim_proxy_model_resolutions_total",
		"nim_proxy_stream_frames_total",
		"nim_proxy_upstream_latency_seconds",
		"nim_proxy_active_streams",
	} {
		assert.Contains(t, string(body), name)
	}
}

func TestResolutionCounter(t *testing.T) {
	before := testutil.ToFloat64(ModelResolutionsTotal.WithLabelValues("fallback"))
	ModelResolutionsTotal.WithLabelValues("fallback").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ModelResolutionsTotal.WithLabelValues("fallback")))
}
