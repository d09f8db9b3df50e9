// Package storage persists analytics results as CSV files so they can be
// served back without retraining.
package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no persisted result exists
var ErrNotFound = errors.New("result not found")

// ForecastRow is one persisted forecast point
type ForecastRow struct {
	Date         time.Time `json:"Date"`
	PredictedAQI float64   `json:"Predicted_AQI"`
}

// MetricsRow is one line of the metrics summary
type MetricsRow struct {
	Country string  `json:"Country"`
	R2      float64 `json:"R2"`
	MAE     float64 `json:"MAE"`
	RMSE    float64 `json:"RMSE"`
}

// ClassificationRow is one model line of the classification summary
type ClassificationRow struct {
	Model     string  `json:"Model"`
	Accuracy  float64 `json:"Accuracy"`
	Precision float64 `json:"Precision"`
	Recall    float64 `json:"Recall"`
	F1        float64 `json:"F1-Score"`
}

// ResultStore is the interface for result persistence backends
type ResultStore interface {
	// SaveForecast replaces the forecast table of a country
	SaveForecast(country string, rows []ForecastRow) error

	// LoadForecast reads the forecast table of a country, ErrNotFound if absent
	LoadForecast(country string) ([]ForecastRow, error)

	// AppendMetrics appends lines to the metrics summary, creating it with a
	// header when it does not exist
	AppendMetrics(rows []MetricsRow) error

	// LoadMetrics reads every line of the metrics summary
	LoadMetrics() ([]MetricsRow, error)

	// SaveClassification replaces the classification summary
	SaveClassification(rows []ClassificationRow) error
}
