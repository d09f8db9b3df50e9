package models

// PredictRequest is the body of POST /predict
type PredictRequest struct {
	Country          string   `json:"country"`
	Region           string   `json:"region,omitempty"`
	Temperature      *float64 `json:"temperature"`
	RelativeHumidity *float64 `json:"relative_humidity"`
	WindSpeed        *float64 `json:"wind_speed"`
	Date             string   `json:"date"` // first forecast day, YYYY-MM-DD
}

// MissingFields lists the required fields absent from the request
func (r *PredictRequest) MissingFields() []string {
	var missing []string
	if r.Country == "" {
		missing = append(missing, "country")
	}
	if r.Temperature == nil {
		missing = append(missing, "temperature")
	}
	if r.RelativeHumidity == nil {
		missing = append(missing, "relative_humidity")
	}
	if r.WindSpeed == nil {
		missing = append(missing, "wind_speed")
	}
	if r.Date == "" {
		missing = append(missing, "date")
	}
	return missing
}

// RegressorRequest is the optional body of POST /regressor
type RegressorRequest struct {
	Workers int `json:"workers,omitempty"`
}

// ClusterRequest is the optional body of POST /cluster
type ClusterRequest struct {
	Country string `json:"country,omitempty"`
}
