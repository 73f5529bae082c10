package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	apierrors "micromes/internal/errors"
)

// IngestHandler triggers ingestion runs over HTTP
type IngestHandler struct {
	runner       IngestionRunner
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	writeTimeout time.Duration
}

// NewIngestHandler creates the ingest handler
func NewIngestHandler(runner IngestionRunner, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *IngestHandler {
	return &IngestHandler{
		runner:       runner,
		logger:       logger.With(slog.String("component", "ingest_handler")),
		errorHandler: errorHandler,
	}
}

// SetWriteTimeout extends the server write deadline for ingest requests.
// A batch runs synchronously and can outlast the server-wide WriteTimeout.
func (h *IngestHandler) SetWriteTimeout(d time.Duration) {
	h.writeTimeout = d
}

// Ingest handles POST /api/spc/ingest. The run is detached from request
// cancellation so a client disconnect cannot leave a batch half done.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	if h.writeTimeout > 0 {
		err := http.NewResponseController(w).SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err != nil && !errors.Is(err, http.ErrNotSupported) {
			h.logger.WarnContext(r.Context(), "Failed to extend write deadline", slog.String("error", err.Error()))
		}
	}

	report, err := h.runner.Run(context.WithoutCancel(r.Context()))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewFileSystemError("ingestion", err))
		return
	}

	h.logger.InfoContext(r.Context(), "Ingestion triggered over HTTP",
		slog.String("run_id", report.RunID),
		slog.Int("files_moved", report.FilesMoved),
		slog.Int("records_written", report.RecordsWritten))
	render.JSON(w, r, report)
}
