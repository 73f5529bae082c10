package infrastructure

import (
	"context"

	"github.com/google/uuid"
)

// NewRunID returns an identifier for one ingestion batch or request
func NewRunID() string {
	return uuid.New().String()
}

// EnsureTraceID attaches a fresh trace ID unless ctx already carries one.
// CLI-initiated ingestion runs have no request middleware to set it.
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, NewRunID())
}
