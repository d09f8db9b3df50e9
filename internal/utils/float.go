package utils

import "math"

// JSONSafe maps NaN and ±Inf to 0 so the value can be encoded as JSON
func JSONSafe(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// JSONSafeMap applies JSONSafe to every value in place and returns the map
func JSONSafeMap(values map[string]float64) map[string]float64 {
	for k, v := range values {
		values[k] = JSONSafe(v)
	}
	return values
}

// CleanAQI is JSONSafe that also clamps negative predictions to 0. AQI is
// never negative but a regressor can extrapolate below 0.
func CleanAQI(v float64) float64 {
	v = JSONSafe(v)
	if v < 0 {
		return 0
	}
	return v
}
