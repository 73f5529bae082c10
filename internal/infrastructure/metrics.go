package infrastructure

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels shared by the counters below
const (
	OutcomeIngested = "ingested"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"

	OutcomeComputed     = "computed"
	OutcomeInsufficient = "insufficient_data"
	OutcomeError        = "error"
)

// SPCMetrics holds the ingestion and charting counters
type SPCMetrics struct {
	filesTotal    metric.Int64Counter
	recordsTotal  metric.Int64Counter
	errorsTotal   metric.Int64Counter
	chartRequests metric.Int64Counter
}

// NewSPCMetrics registers the counters on meter
func NewSPCMetrics(meter metric.Meter) (*SPCMetrics, error) {
	filesTotal, err := meter.Int64Counter(
		"ingestion_files_total",
		metric.WithDescription("Workbooks processed by ingestion, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	recordsTotal, err := meter.Int64Counter(
		"ingestion_records_total",
		metric.WithDescription("Measurement records persisted by ingestion"),
	)
	if err != nil {
		return nil, err
	}

	errorsTotal, err := meter.Int64Counter(
		"ingestion_errors_total",
		metric.WithDescription("Row, parameter and file errors logged by ingestion"),
	)
	if err != nil {
		return nil, err
	}

	chartRequests, err := meter.Int64Counter(
		"chart_requests_total",
		metric.WithDescription("Control chart requests, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	return &SPCMetrics{
		filesTotal:    filesTotal,
		recordsTotal:  recordsTotal,
		errorsTotal:   errorsTotal,
		chartRequests: chartRequests,
	}, nil
}

// RecordFile counts one processed workbook
func (m *SPCMetrics) RecordFile(ctx context.Context, outcome string, records, errs int) {
	if m == nil {
		return
	}
	m.filesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if records > 0 {
		m.recordsTotal.Add(ctx, int64(records))
	}
	if errs > 0 {
		m.errorsTotal.Add(ctx, int64(errs))
	}
}

// RecordChart counts one chart request
func (m *SPCMetrics) RecordChart(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.chartRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
