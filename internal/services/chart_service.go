package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"micromes/internal/config"
	apperrors "micromes/internal/errors"
	"micromes/internal/exporter"
	"micromes/internal/infrastructure"
	"micromes/internal/spc"
	"micromes/pkg/contracts/domain"
)

// ChartEngine generates control charts
type ChartEngine interface {
	Generate(ctx context.Context, req domain.ChartRequest) (*domain.ControlChart, error)
}

// SelectionStore answers which slices hold enough data to chart
type SelectionStore interface {
	CountByPartNumber(ctx context.Context, pn string) (int, error)
	ChartableMonths(ctx context.Context, pn, parameter string, min int) ([]domain.Month, error)
}

// ChartService is the read side of the application: selections, charts
// and exports
type ChartService struct {
	engine   ChartEngine
	store    SelectionStore
	registry *config.Registry
	validate *validator.Validate
	metrics  *infrastructure.SPCMetrics
	logger   *slog.Logger
}

// NewChartService creates a chart service
func NewChartService(engine ChartEngine, store SelectionStore, registry *config.Registry, metrics *infrastructure.SPCMetrics, logger *slog.Logger) *ChartService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChartService{
		engine:   engine,
		store:    store,
		registry: registry,
		validate: validator.New(),
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "chart_service")),
	}
}

// Parameters lists the registry entries
func (s *ChartService) Parameters() []config.ParameterConfig {
	return s.registry.Parameters()
}

// Selections returns the part numbers with at least the minimum number of
// measurements, each with the parameters and months that can be charted
func (s *ChartService) Selections(ctx context.Context) ([]domain.PartNumberSelection, error) {
	need := s.registry.MinimumSampleSize
	selections := []domain.PartNumberSelection{}

	for _, pn := range s.registry.PartNumbers() {
		count, err := s.store.CountByPartNumber(ctx, pn)
		if err != nil {
			return nil, apperrors.NewStorageError("failed to count measurements", err).WithContext("part_number", pn)
		}
		if count < need {
			continue
		}

		module := s.registry.ModuleName(pn)
		sel := domain.PartNumberSelection{
			PartNumber: pn,
			ModuleName: module,
			Label:      fmt.Sprintf("%s (%s)", module, pn),
			Records:    count,
			Parameters: []domain.ParameterSelection{},
		}

		for _, param := range s.registry.ForPartNumber(pn) {
			months, err := s.store.ChartableMonths(ctx, pn, param.Name, need)
			if err != nil {
				return nil, apperrors.NewStorageError("failed to list chartable months", err).
					WithContext("part_number", pn).
					WithContext("parameter", param.Name)
			}
			if len(months) == 0 {
				continue
			}
			sel.Parameters = append(sel.Parameters, domain.ParameterSelection{Parameter: param.Name, Months: months})
		}
		if len(sel.Parameters) == 0 {
			// enough rows overall, but no parameter has a chartable month
			continue
		}
		selections = append(selections, sel)
	}

	s.logger.DebugContext(ctx, "Selections built", slog.Int("part_numbers", len(selections)))
	return selections, nil
}

// Chart validates req and generates its control chart
func (s *ChartService) Chart(ctx context.Context, req domain.ChartRequest) (*domain.ControlChart, error) {
	if err := s.validateRequest(req); err != nil {
		s.metrics.RecordChart(ctx, infrastructure.OutcomeError)
		return nil, err
	}

	chart, err := s.engine.Generate(ctx, req)
	if err != nil {
		var insufficient *spc.InsufficientDataError
		if errors.As(err, &insufficient) {
			s.metrics.RecordChart(ctx, infrastructure.OutcomeInsufficient)
			return nil, apperrors.NewInsufficientDataError(insufficient.Have, insufficient.Need, err).
				WithContext("part_number", req.PartNumber).
				WithContext("parameter", req.Parameter)
		}
		s.metrics.RecordChart(ctx, infrastructure.OutcomeError)
		return nil, apperrors.NewStorageError("failed to generate chart", err)
	}

	s.metrics.RecordChart(ctx, infrastructure.OutcomeComputed)
	s.logger.InfoContext(ctx, "Chart generated",
		slog.String("part_number", req.PartNumber),
		slog.String("parameter", req.Parameter),
		slog.String("month", req.Month.String()),
		slog.Int("sample_size", chart.SampleSize),
		slog.String("capability", string(chart.Capability.Status)))
	return chart, nil
}

// ExportChart generates the chart for req and writes it to w as an .xlsx
// workbook
func (s *ChartService) ExportChart(ctx context.Context, req domain.ChartRequest, w io.Writer) (*domain.ControlChart, error) {
	chart, err := s.Chart(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := exporter.WriteChartWorkbook(w, chart); err != nil {
		return nil, apperrors.NewFileSystemError("chart export", err)
	}
	return chart, nil
}

func (s *ChartService) validateRequest(req domain.ChartRequest) error {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]apperrors.ValidationError, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, apperrors.ValidationError{
					Field:   fe.Field(),
					Message: fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()),
				})
			}
			return apperrors.NewValidationErrors(fields)
		}
		return apperrors.InvalidRequestWithError(err)
	}

	if _, ok := s.registry.Lookup(req.Parameter, req.PartNumber); !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("parameter %q for part number %s", req.Parameter, req.PartNumber)).
			WithContext("part_number", req.PartNumber).
			WithContext("parameter", req.Parameter)
	}
	return nil
}
