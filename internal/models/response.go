package models

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Prediction is one forecast day
type Prediction struct {
	Date string  `json:"date"`
	AQI  float64 `json:"aqi"`
}

// PredictResponse is returned by POST /predict
type PredictResponse struct {
	Country       string       `json:"country"`
	Predictions   []Prediction `json:"predictions"`
	StartDate     string       `json:"start_date"`
	EndDate       string       `json:"end_date"`
	PaddedHistory int          `json:"padded_history"`
	Category      string       `json:"category"`       // band of the first predicted day
	HealthMessage string       `json:"health_message"` // advice for the first predicted day
}

// RegressionRow is one persisted forecast line served by GET /api/regression
type RegressionRow struct {
	Country      string  `json:"Country"`
	Date         string  `json:"Date"`
	PredictedAQI float64 `json:"Predicted_AQI"`
}

// InvalidateResponse is returned by POST /admin/dataset/invalidate
type InvalidateResponse struct {
	Invalidated bool `json:"invalidated"`
}
