package anomaly

import (
	"sort"
)

// IQRDetector flags readings outside [Q1 - k*IQR, Q3 + k*IQR].
// It is robust to the outliers it is looking for, unlike Z-Score.
type IQRDetector struct{}

func init() {
	RegisterDetector("iqr", &IQRDetector{})
}

// Name returns the algorithm name
func (d *IQRDetector) Name() string {
	return "iqr"
}

// Detect finds anomalies using IQR method
func (d *IQRDetector) Detect(values []float64, cfg Config) []Result {
	if len(values) < cfg.MinDataPoints || len(values) == 0 {
		return nil
	}

	q1, q3, iqr := CalculateIQR(values)
	k := cfg.IQRMultiplier
	if k <= 0 {
		k = 1.5
	}

	expected := &Range{Min: q1 - k*iqr, Max: q3 + k*iqr}

	var results []Result
	for i, v := range values {
		if v >= expected.Min && v <= expected.Max {
			continue
		}

		score := 1.0
		typ := TypeSpike
		if v < expected.Min {
			typ = TypeDrop
		}
		if iqr > 0 {
			if typ == TypeDrop {
				score = (expected.Min - v) / iqr
			} else {
				score = (v - expected.Max) / iqr
			}
		}

		results = append(results, Result{Index: i, Score: score, Type: typ, Expected: expected})
	}
	return results
}

// percentile calculates the p-th percentile (0-100) of sorted data with
// linear interpolation
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}

	index := (p / 100) * float64(len(sorted)-1)
	lower := int(index)
	if lower+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[lower+1]*weight
}

// CalculateIQR returns Q1, Q3, and IQR for a slice of values
func CalculateIQR(values []float64) (q1, q3, iqr float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	q1 = percentile(sorted, 25)
	q3 = percentile(sorted, 75)
	return q1, q3, q3 - q1
}
