// Package features turns a country's AQI series into the fixed feature
// schema consumed by the regressor.
package features

import (
	"math"
	"time"

	"github.com/airaware/aqi-analytics/internal/dataset"
)

// LagOffsets are the AQI lags, in rows, fed to the model
var LagOffsets = [...]int{1, 3, 7, 14, 30}

// RollingWindows are the AQI rolling-mean windows, inclusive of the current row
var RollingWindows = [...]int{3, 7, 14}

// MaxLag is the number of prior rows needed before a row becomes trainable
const MaxLag = 30

// Names lists the feature schema in column order
var Names = []string{
	"Temperature", "RelativeHumidity", "WindSpeed",
	"month", "day", "dayofweek",
	"aqi_lag_1", "aqi_lag_3", "aqi_lag_7", "aqi_lag_14", "aqi_lag_30",
	"aqi_roll_3", "aqi_roll_7", "aqi_roll_14",
	"month_sin", "month_cos", "dayofweek_sin", "dayofweek_cos",
}

// NumFeatures is the width of a feature vector
var NumFeatures = len(Names)

// Exogenous holds the weather inputs of a row
type Exogenous struct {
	Temperature      float64 `json:"temperature"`
	RelativeHumidity float64 `json:"relative_humidity"`
	WindSpeed        float64 `json:"wind_speed"`
}

// Valid reports whether every weather value is present and finite
func (e Exogenous) Valid() bool {
	return finite(e.Temperature) && finite(e.RelativeHumidity) && finite(e.WindSpeed)
}

// Row is one engineered row. Missing values are NaN.
type Row struct {
	Date  time.Time
	AQI   float64
	Exo   Exogenous
	Lags  [len(LagOffsets)]float64
	Rolls [len(RollingWindows)]float64
}

// Trainable reports whether the row has every lag, rolling and weather value
func (r Row) Trainable() bool {
	if !r.Exo.Valid() || !finite(r.AQI) {
		return false
	}
	for _, v := range r.Lags {
		if !finite(v) {
			return false
		}
	}
	for _, v := range r.Rolls {
		if !finite(v) {
			return false
		}
	}
	return true
}

// Vector returns the row's feature vector in schema order
func (r Row) Vector() []float64 {
	return Vector(r.Date, r.Exo, r.Lags, r.Rolls)
}

// Table is a chronologically ordered set of engineered rows
type Table []Row

// Build engineers every row of a sorted series. Lags and rolling means
// look back over the full series, so a row may reference an earlier row
// that is itself not trainable.
func Build(series dataset.Series) Table {
	aqi := series.AQI()
	table := make(Table, len(series))

	for i, obs := range series {
		row := Row{
			Date: obs.Date,
			AQI:  obs.AQI,
			Exo: Exogenous{
				Temperature:      obs.Temperature,
				RelativeHumidity: obs.RelativeHumidity,
				WindSpeed:        obs.WindSpeed,
			},
		}
		for j, k := range LagOffsets {
			row.Lags[j] = math.NaN()
			if i-k >= 0 {
				row.Lags[j] = aqi[i-k]
			}
		}
		for j, w := range RollingWindows {
			row.Rolls[j] = math.NaN()
			if i+1 >= w {
				row.Rolls[j] = mean(aqi[i+1-w : i+1])
			}
		}
		table[i] = row
	}
	return table
}

// Trainable returns the rows usable for fitting, preserving order
func Trainable(table Table) Table {
	out := make(Table, 0, len(table))
	for _, row := range table {
		if row.Trainable() {
			out = append(out, row)
		}
	}
	return out
}

// Matrix returns the feature vectors of all rows
func (t Table) Matrix() [][]float64 {
	out := make([][]float64, len(t))
	for i, row := range t {
		out[i] = row.Vector()
	}
	return out
}

// Target returns the AQI column
func (t Table) Target() []float64 {
	out := make([]float64, len(t))
	for i, row := range t {
		out[i] = row.AQI
	}
	return out
}

// Tail returns the last n rows, or all rows when fewer exist
func (t Table) Tail(n int) Table {
	if n >= len(t) {
		return t
	}
	return t[len(t)-n:]
}

// MeanExogenous averages the weather inputs of the rows
func (t Table) MeanExogenous() Exogenous {
	if len(t) == 0 {
		return Exogenous{}
	}
	var sum Exogenous
	for _, row := range t {
		sum.Temperature += row.Exo.Temperature
		sum.RelativeHumidity += row.Exo.RelativeHumidity
		sum.WindSpeed += row.Exo.WindSpeed
	}
	n := float64(len(t))
	return Exogenous{
		Temperature:      sum.Temperature / n,
		RelativeHumidity: sum.RelativeHumidity / n,
		WindSpeed:        sum.WindSpeed / n,
	}
}

// Vector assembles a feature vector for a single date
func Vector(date time.Time, exo Exogenous, lags [len(LagOffsets)]float64, rolls [len(RollingWindows)]float64) []float64 {
	month, day, dow := Calendar(date)
	cyc := Cyclical(month, dow)

	v := make([]float64, 0, NumFeatures)
	v = append(v, exo.Temperature, exo.RelativeHumidity, exo.WindSpeed)
	v = append(v, float64(month), float64(day), float64(dow))
	v = append(v, lags[:]...)
	v = append(v, rolls[:]...)
	v = append(v, cyc[:]...)
	return v
}

// Calendar returns month (1-12), day of month and day of week with Monday = 0
func Calendar(date time.Time) (month, day, dayOfWeek int) {
	return int(date.Month()), date.Day(), (int(date.Weekday()) + 6) % 7
}

// Cyclical encodes month and day of week on the unit circle:
// sin/cos(2π·month/12) and sin/cos(2π·dow/7)
func Cyclical(month, dayOfWeek int) [4]float64 {
	m := 2 * math.Pi * float64(month) / 12
	d := 2 * math.Pi * float64(dayOfWeek) / 7
	return [4]float64{math.Sin(m), math.Cos(m), math.Sin(d), math.Cos(d)}
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
