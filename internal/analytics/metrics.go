// Package analytics provides the types and helpers shared by the
// forecasting, classification and clustering packages.
package analytics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RegressionMetrics holds hold-out evaluation scores of a regressor
type RegressionMetrics struct {
	R2   float64 `json:"r2"`
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
}

// Evaluate computes R2, MAE and RMSE of predicted against actual
func Evaluate(actual, predicted []float64) RegressionMetrics {
	return RegressionMetrics{
		R2:   CalculateR2(actual, predicted),
		MAE:  CalculateMAE(actual, predicted),
		RMSE: CalculateRMSE(actual, predicted),
	}
}

// Rounded returns the metrics rounded to 3 decimals, as persisted
func (m RegressionMetrics) Rounded() RegressionMetrics {
	return RegressionMetrics{
		R2:   Round(m.R2, 3),
		MAE:  Round(m.MAE, 3),
		RMSE: Round(m.RMSE, 3),
	}
}

// CalculateR2 calculates the coefficient of determination.
// A constant actual series has no explained variance and yields 0.
func CalculateR2(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}
	if stat.Variance(actual, nil) == 0 || len(actual) == 1 {
		return 0
	}
	return stat.RSquaredFrom(predicted, actual, nil)
}

// CalculateMAE calculates Mean Absolute Error
func CalculateMAE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	sum := 0.0
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

// CalculateRMSE calculates Root Mean Squared Error
func CalculateRMSE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}
	return floats.Distance(actual, predicted, 2) / math.Sqrt(float64(len(actual)))
}

// Round rounds v to the given number of decimals
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
