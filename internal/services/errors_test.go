package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/airaware/aqi-analytics/internal/analytics/forecast"
	"github.com/airaware/aqi-analytics/internal/dataset"
	"github.com/airaware/aqi-analytics/internal/storage"
)

func TestServiceError_Error(t *testing.T) {
	err := &ServiceError{
		Code:    "TEST_ERROR",
		Message: "Test error message",
	}

	if err.Error() != "Test error message" {
		t.Errorf("Expected 'Test error message', got '%s'", err.Error())
	}
}

func TestNewServiceErrorWithDetails_JSON(t *testing.T) {
	err := NewServiceErrorWithDetails(CodeInvalidRequest, "bad", map[string]interface{}{"field": "date"})

	data, marshalErr := json.Marshal(err)
	if marshalErr != nil {
		t.Fatalf("Failed to marshal: %v", marshalErr)
	}
	if !strings.Contains(string(data), `"details":{"field":"date"}`) {
		t.Errorf("Expected details in JSON, got %s", data)
	}

	plain, _ := json.Marshal(NewServiceError(CodeInternal, "x"))
	if strings.Contains(string(plain), "details") {
		t.Errorf("Expected details to be omitted, got %s", plain)
	}
}

func TestToServiceError(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{fmt.Errorf("wrap: %w", dataset.ErrUnknownCountry), CodeUnknownCountry},
		{fmt.Errorf("%w: no rows", forecast.ErrInsufficientHistory), CodeInsufficientHistory},
		{fmt.Errorf("%w: boom", forecast.ErrModelFit), CodeModelFitFailed},
		{storage.ErrNotFound, CodeResultNotFound},
		{context.DeadlineExceeded, CodeTimeout},
		{fmt.Errorf("disk on fire"), CodeInternal},
		{NewServiceError(CodeInvalidRequest, "kept"), CodeInvalidRequest},
	}

	for _, tt := range tests {
		if got := toServiceError(tt.err, nil); got.Code != tt.code {
			t.Errorf("toServiceError(%v) = %s, want %s", tt.err, got.Code, tt.code)
		}
	}
}
