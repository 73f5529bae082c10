package spc

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is matched by every InsufficientDataError
var ErrInsufficientData = errors.New("insufficient data")

// InsufficientDataError reports a slice smaller than the minimum sample size
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d measurements, need at least %d", e.Have, e.Need)
}

// Unwrap allows errors.Is(err, ErrInsufficientData)
func (e *InsufficientDataError) Unwrap() error {
	return ErrInsufficientData
}
