package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for harmonization and persistence operations.
var (
	ErrEmptyTable        = errors.New("table has no rows")
	ErrNoMapping         = errors.New("no column mapping detected")
	ErrRecordNotFound    = errors.New("record not found")
	ErrDatasetNotFound   = errors.New("dataset not registered")
	ErrDatasetDisabled   = errors.New("dataset is disabled")
	ErrDuplicateRecord   = errors.New("record already exists")
	ErrStoreClosed       = errors.New("store is closed")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrPipelineCancelled = errors.New("pipeline run cancelled")
)

// ValidationError reports a field-level problem in an inbound request or row.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a field-level validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// APIError is the error shape returned by the HTTP surface.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates an API error with an explicit HTTP status.
func NewAPIError(code, message string, status int) *APIError {
	return &APIError{Code: code, Message: message, Status: status}
}

// APIErrorFrom maps internal errors onto API error responses.
func APIErrorFrom(err error) *APIError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return NewAPIError("VALIDATION_ERROR", ve.Error(), http.StatusBadRequest)
	}

	switch {
	case errors.Is(err, ErrRecordNotFound), errors.Is(err, ErrDatasetNotFound):
		return NewAPIError("NOT_FOUND", err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrEmptyTable), errors.Is(err, ErrNoMapping):
		return NewAPIError("BAD_REQUEST", err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrDatasetDisabled):
		return NewAPIError("DATASET_DISABLED", err.Error(), http.StatusConflict)
	default:
		return NewAPIError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
	}
}
