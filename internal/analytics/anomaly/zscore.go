package anomaly

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ZScoreDetector flags readings more than Threshold sample standard
// deviations from the mean. A constant series is reported as a flatline.
type ZScoreDetector struct{}

func init() {
	RegisterDetector("zscore", &ZScoreDetector{})
}

// Name returns the algorithm name
func (z *ZScoreDetector) Name() string {
	return "zscore"
}

// Detect finds anomalies using Z-Score method
func (z *ZScoreDetector) Detect(values []float64, cfg Config) []Result {
	if len(values) < cfg.MinDataPoints || len(values) < 2 {
		return nil
	}

	mean, stdDev := stat.MeanStdDev(values, nil)
	if stdDev == 0 {
		return flatline(values)
	}

	expected := &Range{
		Min: mean - cfg.Threshold*stdDev,
		Max: mean + cfg.Threshold*stdDev,
	}

	var results []Result
	for i, v := range values {
		score := (v - mean) / stdDev
		if math.Abs(score) <= cfg.Threshold {
			continue
		}

		typ := TypeSpike
		if score < 0 {
			typ = TypeDrop
		}
		results = append(results, Result{Index: i, Score: math.Abs(score), Type: typ, Expected: expected})
	}
	return results
}

func flatline(values []float64) []Result {
	results := make([]Result, len(values))
	for i := range values {
		results[i] = Result{Index: i, Score: 1, Type: TypeFlatline}
	}
	return results
}
