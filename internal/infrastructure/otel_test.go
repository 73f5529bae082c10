package infrastructure

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"micromes/internal/config"
)

func TestInitializeOTelPrometheus(t *testing.T) {
	providers, err := InitializeOTel(config.TelemetryConfig{
		ServiceName:   "micromes-test",
		TraceExporter: "none",
		Metrics:       true,
	}, NewNopLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	require.NotNil(t, providers.PrometheusHTTP)

	metrics, err := NewSPCMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RecordFile(context.Background(), OutcomeIngested, 12, 1)
	metrics.RecordChart(context.Background(), OutcomeInsufficient)

	w := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ingestion_files_total{`)
	assert.Contains(t, string(body), `outcome="ingested"`)
	assert.Contains(t, string(body), `ingestion_records_total`)
	assert.Contains(t, string(body), `chart_requests_total{`)
}

func TestInitializeOTelUnsupportedExporter(t *testing.T) {
	_, err := InitializeOTel(config.TelemetryConfig{TraceExporter: "jaeger"}, NewNopLogger())
	assert.Error(t, err)
}

func TestNoopProviders(t *testing.T) {
	providers := NoopProviders()
	ctx, span := providers.Tracer.Start(context.Background(), "noop")
	RecordError(ctx, io.EOF)
	span.End()

	metrics, err := NewSPCMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RecordChart(ctx, OutcomeComputed)

	var nilMetrics *SPCMetrics
	nilMetrics.RecordFile(ctx, OutcomeFailed, 0, 1)

	assert.NoError(t, providers.Shutdown(ctx))
	assert.Nil(t, providers.PrometheusHTTP)
}
