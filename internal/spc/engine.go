package spc

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"micromes/internal/config"
	"micromes/pkg/contracts/domain"
)

// MeasurementSource returns the measurements of one chart slice ordered by
// measurement date, then insertion order
type MeasurementSource interface {
	Slice(ctx context.Context, pn, parameter string, month domain.Month) ([]domain.MeasurementRecord, error)
}

// Engine generates control charts from stored measurements
type Engine struct {
	source   MeasurementSource
	registry *config.Registry
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewEngine creates a chart engine. A nil tracer disables spans.
func NewEngine(source MeasurementSource, registry *config.Registry, tracer trace.Tracer, logger *slog.Logger) *Engine {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("spc")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		source:   source,
		registry: registry,
		tracer:   tracer,
		logger:   logger.With(slog.String("component", "spc_engine")),
	}
}

// Generate builds the control chart for req
func (e *Engine) Generate(ctx context.Context, req domain.ChartRequest) (*domain.ControlChart, error) {
	ctx, span := e.tracer.Start(ctx, "spc.generate", trace.WithAttributes(
		attribute.String("spc.part_number", req.PartNumber),
		attribute.String("spc.parameter", req.Parameter),
		attribute.String("spc.month", req.Month.String()),
	))
	defer span.End()

	records, err := e.source.Slice(ctx, req.PartNumber, req.Parameter, req.Month)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load measurements: %w", err)
	}

	records = DistinctSerialValues(records)
	span.SetAttributes(attribute.Int("spc.sample_size", len(records)))

	need := e.registry.MinimumSampleSize
	if len(records) < need {
		err := &InsufficientDataError{Have: len(records), Need: need}
		e.logger.InfoContext(ctx, "chart not generated",
			slog.String("part_number", req.PartNumber),
			slog.String("parameter", req.Parameter),
			slog.Int("have", err.Have),
			slog.Int("need", err.Need))
		return nil, err
	}

	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.Value
	}

	stats := Compute(values, e.registry.SubgroupSize, e.limitsFor(req))
	e.logger.DebugContext(ctx, "chart computed",
		slog.String("part_number", req.PartNumber),
		slog.String("parameter", req.Parameter),
		slog.String("stats", stats.String()))

	return &domain.ControlChart{
		Request:      req,
		ModuleName:   e.registry.ModuleName(req.PartNumber),
		SampleSize:   len(values),
		SubgroupSize: stats.SubgroupSize,
		Subgroups:    stats.Subgroups,
		Mean:         stats.Mean,
		StdDev:       stats.StdDev,
		UCL:          stats.UCL,
		LCL:          stats.LCL,
		RCenter:      stats.RCenter,
		Capability:   stats.Capability,
	}, nil
}

// limitsFor returns the registry limits of the parameter. Limits stored on
// the rows are never consulted; a parameter whose registry entry leaves a
// bound unset has no capability.
func (e *Engine) limitsFor(req domain.ChartRequest) domain.SpecLimits {
	param, ok := e.registry.Lookup(req.Parameter, req.PartNumber)
	if !ok {
		return domain.SpecLimits{}
	}
	return param.Limits
}

// DistinctSerialValues keeps the first occurrence of each (serial, value)
// pair, preserving order
func DistinctSerialValues(records []domain.MeasurementRecord) []domain.MeasurementRecord {
	type key struct {
		serial string
		value  float64
	}

	seen := make(map[key]struct{}, len(records))
	out := make([]domain.MeasurementRecord, 0, len(records))
	for _, r := range records {
		k := key{r.SerialNumber, r.Value}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
