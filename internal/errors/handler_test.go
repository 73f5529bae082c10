package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler() *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewJSONHandler(io.Discard, nil)), false)
}

func TestErrorToProblem(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", NewAppError(ErrTypeValidation, "part_number is required", nil), http.StatusBadRequest, TypeValidation},
		{"not found", NewNotFoundError("parameter"), http.StatusNotFound, TypeNotFound},
		{"insufficient data", NewInsufficientDataError(12, 50, nil), http.StatusUnprocessableEntity, TypeInsufficientData},
		{"wrapped app error", fmt.Errorf("chart: %w", NewNotFoundError("part number")), http.StatusNotFound, TypeNotFound},
		{"storage", NewStorageError("query failed", io.ErrUnexpectedEOF), http.StatusInternalServerError, TypeStorage},
		{"api error", InvalidRequestWithError(fmt.Errorf("bad month")), http.StatusBadRequest, TypeValidation},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, TypeInternal},
	}

	h := newTestHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/spc/chart", nil)
			problem := h.ErrorToProblem(tt.err, r)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/spc/chart", problem.Instance)
		})
	}
}

func TestHandleErrorInsufficientData(t *testing.T) {
	h := newTestHandler()
	r := httptest.NewRequest(http.MethodGet, "/api/spc/chart", nil)
	w := httptest.NewRecorder()

	h.HandleError(w, r, NewInsufficientDataError(7, 50, nil))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, TypeInsufficientData, body["type"])
	assert.Equal(t, float64(7), body["have"])
	assert.Equal(t, float64(50), body["need"])
	assert.Contains(t, body, "trace_id")
}

func TestProblemDetailsMarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", "/a").
		WithExtension("type", "shadowed").
		WithExtension("extra", 1)

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, TypeNotFound, body["type"])
	assert.Equal(t, float64(1), body["extra"])
	assert.NotContains(t, body, "detail")
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewStorageError("insert batch", cause).WithContext("file", "a.xlsx")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[STORAGE] insert batch: disk full", err.Error())
	assert.Equal(t, "a.xlsx", err.Context["file"])
}
