package http

import (
	"context"
	"io"

	"micromes/internal/config"
	"micromes/internal/ingestion"
	"micromes/internal/services"
	"micromes/pkg/contracts/domain"
)

// ChartService is the read side used by the SPC handler
type ChartService interface {
	Parameters() []config.ParameterConfig
	Selections(ctx context.Context) ([]domain.PartNumberSelection, error)
	Chart(ctx context.Context, req domain.ChartRequest) (*domain.ControlChart, error)
	ExportChart(ctx context.Context, req domain.ChartRequest, w io.Writer) (*domain.ControlChart, error)
}

// IngestionRunner runs one ingestion batch
type IngestionRunner interface {
	Run(ctx context.Context) (*ingestion.Report, error)
}

// HealthChecker reports liveness and readiness
type HealthChecker interface {
	LivenessCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
}
