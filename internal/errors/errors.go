package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError is a request-level failure that already knows its HTTP status.
// Handlers return it for malformed input before any service is called.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError names one rejected request field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func newAPIError(status int, code, message string, details interface{}) *APIError {
	return &APIError{StatusCode: status, ErrorCode: code, Message: message, Details: details}
}

// InvalidRequestWithError wraps a decoding or validator failure
func InvalidRequestWithError(err error) *APIError {
	return newAPIError(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error())
}

// NewValidationErrors reports every bad field of a chart or selection query
func NewValidationErrors(errs []ValidationError) *APIError {
	return newAPIError(http.StatusBadRequest, "VALIDATION_FAILED",
		fmt.Sprintf("Request validation failed: %d invalid field(s)", len(errs)), errs)
}
