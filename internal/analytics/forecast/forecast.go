// Package forecast trains per-country AQI regressors and simulates them
// forward day by day, feeding every prediction back into the lag window.
package forecast

import (
	"errors"
	"time"

	"github.com/airaware/aqi-analytics/internal/analytics"
)

var (
	// ErrInsufficientHistory is returned when there are no usable rows to
	// train on or to seed the simulation with
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrModelFit is returned when the regressor cannot be fitted
	ErrModelFit = errors.New("model fit failed")
)

// Regressor predicts AQI from a feature vector in the features.Names order
type Regressor interface {
	Predict(x []float64) float64
}

// Point represents a single forecast prediction
type Point struct {
	Date time.Time `json:"date"`
	AQI  float64   `json:"aqi"`
}

// ModelInfo contains metadata about a fitted model
type ModelInfo struct {
	Algorithm  string                       `json:"algorithm"`
	Parameters map[string]interface{}       `json:"parameters,omitempty"`
	Metrics    *analytics.RegressionMetrics `json:"metrics,omitempty"` // hold-out scores, nil when trained on everything
	TrainRows  int                          `json:"train_rows"`
	TestRows   int                          `json:"test_rows"`
}

// Result contains the forecast and how it was seeded
type Result struct {
	Points    []Point   `json:"predictions"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Padded    int       `json:"padded"` // seed entries added by left-padding
}

// Values extracts the predicted AQI values
func (r *Result) Values() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.AQI
	}
	return out
}
