// Package dataset loads the historical AQI/weather observations and keeps
// them behind an explicit, invalidatable cache.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrUnknownCountry is returned when a country has no observations
var ErrUnknownCountry = errors.New("unknown country")

// Column names expected in the source file
const (
	ColumnCountry          = "Country"
	ColumnDate             = "Date"
	ColumnAQI              = "AQI"
	ColumnTemperature      = "Temperature"
	ColumnRelativeHumidity = "RelativeHumidity"
	ColumnWindSpeed        = "WindSpeed"
)

// Observation is one row of the dataset. Missing numeric values are NaN.
type Observation struct {
	Country          string
	Date             time.Time
	AQI              float64
	Temperature      float64
	RelativeHumidity float64
	WindSpeed        float64
}

// HasWeather reports whether all exogenous weather values are present
func (o Observation) HasWeather() bool {
	return !math.IsNaN(o.Temperature) && !math.IsNaN(o.RelativeHumidity) && !math.IsNaN(o.WindSpeed)
}

// Series is the observation sequence of a single country sorted by date
type Series []Observation

// Dates returns the observation dates
func (s Series) Dates() []time.Time {
	out := make([]time.Time, len(s))
	for i, o := range s {
		out[i] = o.Date
	}
	return out
}

// AQI returns the AQI column
func (s Series) AQI() []float64 {
	out := make([]float64, len(s))
	for i, o := range s {
		out[i] = o.AQI
	}
	return out
}

// Dataset is an immutable, loaded snapshot of the source file
type Dataset struct {
	Observations []Observation
	Report       Report
	Version      string    // unique per load
	LoadedAt     time.Time // when the snapshot was read
	Source       string

	byCountry map[string]Series
}

// newDataset indexes observations by country, sorting each series by date
func newDataset(observations []Observation, report Report, version, source string, loadedAt time.Time) *Dataset {
	byCountry := make(map[string]Series)
	for _, o := range observations {
		byCountry[o.Country] = append(byCountry[o.Country], o)
	}
	for country, series := range byCountry {
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].Date.Before(series[j].Date)
		})
		byCountry[country] = series
	}

	return &Dataset{
		Observations: observations,
		Report:       report,
		Version:      version,
		LoadedAt:     loadedAt,
		Source:       source,
		byCountry:    byCountry,
	}
}

// Countries returns the distinct countries in lexical order
func (d *Dataset) Countries() []string {
	names := make([]string, 0, len(d.byCountry))
	for name := range d.byCountry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Series returns the chronologically sorted series of a country.
// The returned slice is a copy and may be modified by the caller.
func (d *Dataset) Series(country string) (Series, error) {
	series, ok := d.byCountry[country]
	if !ok || len(series) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCountry, country)
	}
	out := make(Series, len(series))
	copy(out, series)
	return out, nil
}

// Len returns the number of observations
func (d *Dataset) Len() int {
	return len(d.Observations)
}
