package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "micromes/internal/errors"
	"micromes/pkg/contracts/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SPCHandler serves parameters, selections and control charts
type SPCHandler struct {
	service      ChartService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSPCHandler creates the SPC handler
func NewSPCHandler(service ChartService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SPCHandler {
	return &SPCHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "spc_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the read routes mounted under /api/spc
func (h *SPCHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/parameters", h.GetParameters)
	r.Get("/selections", h.GetSelections)
	r.Get("/chart", h.GetChart)
	r.Get("/chart/export", h.ExportChart)
	return r
}

// GetParameters handles GET /api/spc/parameters
func (h *SPCHandler) GetParameters(w http.ResponseWriter, r *http.Request) {
	params := h.service.Parameters()
	render.JSON(w, r, map[string]interface{}{
		"parameters": params,
		"count":      len(params),
	})
}

// GetSelections handles GET /api/spc/selections
func (h *SPCHandler) GetSelections(w http.ResponseWriter, r *http.Request) {
	selections, err := h.service.Selections(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"part_numbers": selections,
		"count":        len(selections),
	})
}

// GetChart handles GET /api/spc/chart
func (h *SPCHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	req, err := parseChartRequest(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	chart, err := h.service.Chart(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, chart)
}

// ExportChart handles GET /api/spc/chart/export. The workbook is built in
// memory so failures can still be reported as problems.
func (h *SPCHandler) ExportChart(w http.ResponseWriter, r *http.Request) {
	req, err := parseChartRequest(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if _, err := h.service.ExportChart(r.Context(), req, &buf); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFileName(req)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to stream chart export",
			slog.String("error", err.Error()))
	}
}

func parseChartRequest(r *http.Request) (domain.ChartRequest, error) {
	q := r.URL.Query()
	req := domain.ChartRequest{
		PartNumber: strings.TrimSpace(q.Get("part_number")),
		Parameter:  q.Get("parameter"),
	}

	if raw := strings.TrimSpace(q.Get("month")); raw != "" {
		month, err := domain.ParseMonth(raw)
		if err != nil {
			return req, apierrors.NewValidationErrors([]apierrors.ValidationError{{
				Field:   "month",
				Message: "month must be formatted as YYYY-MM",
			}})
		}
		req.Month = month
	}
	return req, nil
}

func exportFileName(req domain.ChartRequest) string {
	parts := []string{"spc", req.PartNumber, strings.TrimSpace(req.Parameter)}
	if !req.Month.IsZero() {
		parts = append(parts, req.Month.String())
	}
	name := unsafeFileChars.ReplaceAllString(strings.Join(parts, "_"), "_")
	return name + ".xlsx"
}
