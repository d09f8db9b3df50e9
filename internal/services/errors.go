// Package services provides the business logic layer between handlers and
// the analytics packages. Services load the dataset, run the models,
// persist results and translate domain errors into ServiceErrors.
package services

import (
	"context"
	"errors"

	"github.com/airaware/aqi-analytics/internal/analytics/classify"
	"github.com/airaware/aqi-analytics/internal/analytics/cluster"
	"github.com/airaware/aqi-analytics/internal/analytics/forecast"
	"github.com/airaware/aqi-analytics/internal/dataset"
	"github.com/airaware/aqi-analytics/internal/storage"
)

// Error codes returned by the services
const (
	CodeUnknownCountry      = "UNKNOWN_COUNTRY"
	CodeInsufficientHistory = "INSUFFICIENT_HISTORY"
	CodeModelFitFailed      = "MODEL_FIT_FAILED"
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeDatasetUnavailable  = "DATASET_UNAVAILABLE"
	CodeResultNotFound      = "RESULT_NOT_FOUND"
	CodeTimeout             = "TIMEOUT"
	CodeInternal            = "INTERNAL"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// toServiceError classifies an error from the dataset, analytics or
// storage packages. ServiceErrors pass through unchanged.
func toServiceError(err error, details map[string]interface{}) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}

	code := CodeInternal
	switch {
	case errors.Is(err, dataset.ErrUnknownCountry):
		code = CodeUnknownCountry
	case errors.Is(err, forecast.ErrInsufficientHistory),
		errors.Is(err, classify.ErrNoSamples),
		errors.Is(err, cluster.ErrNoCompleteRows):
		code = CodeInsufficientHistory
	case errors.Is(err, forecast.ErrModelFit):
		code = CodeModelFitFailed
	case errors.Is(err, storage.ErrNotFound):
		code = CodeResultNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		code = CodeTimeout
	}
	return NewServiceErrorWithDetails(code, err.Error(), details)
}

func datasetUnavailable(err error) *ServiceError {
	return NewServiceErrorWithDetails(CodeDatasetUnavailable, "Dataset could not be loaded",
		map[string]interface{}{"error": err.Error()})
}
