package services

import (
	"context"
	"time"

	"github.com/airaware/aqi-analytics/internal/analytics/anomaly"
	"github.com/airaware/aqi-analytics/internal/dataset"
	"github.com/airaware/aqi-analytics/internal/logging"
	"github.com/airaware/aqi-analytics/internal/utils"
)

// DatasetService exposes what was loaded and lets operators drop the cache
type DatasetService struct {
	logger *logging.Logger
	cache  *dataset.Cache
}

// NewDatasetService creates a DatasetService
func NewDatasetService(logger *logging.Logger, cache *dataset.Cache) *DatasetService {
	return &DatasetService{logger: logger, cache: cache}
}

// CountrySummary describes one country's series
type CountrySummary struct {
	Country   string `json:"country"`
	Rows      int    `json:"rows"`
	FirstDate string `json:"first_date"`
	LastDate  string `json:"last_date"`
}

// DatasetSummary describes the current dataset snapshot
type DatasetSummary struct {
	Version   string           `json:"version"`
	Source    string           `json:"source"`
	LoadedAt  time.Time        `json:"loaded_at"`
	Rows      int              `json:"rows"`
	Countries []CountrySummary `json:"countries"`
	Report    dataset.Report   `json:"report"`
}

// Summary loads (or reuses) the dataset and describes it
func (s *DatasetService) Summary(ctx context.Context) (*DatasetSummary, error) {
	ds, err := s.cache.Get(ctx)
	if err != nil {
		return nil, datasetUnavailable(err)
	}

	report := ds.Report
	report.AQIFillValue = utils.JSONSafe(report.AQIFillValue)

	summary := &DatasetSummary{
		Version:  ds.Version,
		Source:   ds.Source,
		LoadedAt: ds.LoadedAt,
		Rows:     ds.Len(),
		Report:   report,
	}
	for _, country := range ds.Countries() {
		series, err := ds.Series(country)
		if err != nil || len(series) == 0 {
			continue
		}
		summary.Countries = append(summary.Countries, CountrySummary{
			Country:   country,
			Rows:      len(series),
			FirstDate: series[0].Date.Format(utils.DateLayout),
			LastDate:  series[len(series)-1].Date.Format(utils.DateLayout),
		})
	}
	return summary, nil
}

// Invalidate drops the cached dataset and every model trained on it
func (s *DatasetService) Invalidate() {
	s.cache.Invalidate()
}

// AQIAnomaly is one flagged reading
type AQIAnomaly struct {
	Date     string         `json:"date"`
	AQI      float64        `json:"aqi"`
	Score    float64        `json:"score"`
	Type     anomaly.Type   `json:"type"`
	Expected *anomaly.Range `json:"expected,omitempty"`
}

// CountryAnomalies lists the flagged readings of one country
type CountryAnomalies struct {
	Country   string       `json:"country"`
	Algorithm string       `json:"algorithm"`
	Readings  int          `json:"readings"`
	Anomalies []AQIAnomaly `json:"anomalies"`
}

// Anomalies flags unusual AQI readings for one country, or for every
// country when country is empty
func (s *DatasetService) Anomalies(ctx context.Context, country, algorithm string) ([]CountryAnomalies, error) {
	if algorithm == "" {
		algorithm = "iqr"
	}
	if _, err := anomaly.GetDetector(algorithm); err != nil {
		return nil, NewServiceErrorWithDetails(CodeInvalidRequest, err.Error(),
			map[string]interface{}{"algorithms": anomaly.ListDetectors()})
	}

	ds, err := s.cache.Get(ctx)
	if err != nil {
		return nil, datasetUnavailable(err)
	}

	countries := ds.Countries()
	if country != "" {
		countries = []string{country}
	}

	cfg := anomaly.DefaultConfig()
	out := make([]CountryAnomalies, 0, len(countries))
	for _, c := range countries {
		series, err := ds.Series(c)
		if err != nil {
			return nil, toServiceError(err, map[string]interface{}{"country": c})
		}

		values := series.AQI()
		results, err := anomaly.Detect(algorithm, values, cfg)
		if err != nil {
			return nil, toServiceError(err, nil)
		}

		ca := CountryAnomalies{Country: c, Algorithm: algorithm, Readings: len(values), Anomalies: []AQIAnomaly{}}
		for _, r := range results {
			ca.Anomalies = append(ca.Anomalies, AQIAnomaly{
				Date:     series[r.Index].Date.Format(utils.DateLayout),
				AQI:      utils.JSONSafe(values[r.Index]),
				Score:    utils.JSONSafe(r.Score),
				Type:     r.Type,
				Expected: r.Expected,
			})
		}
		out = append(out, ca)
	}

	s.logger.WithContext(ctx).Debug("Anomaly scan completed", "algorithm", algorithm, "countries", len(out))
	return out, nil
}
