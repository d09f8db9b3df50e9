package analytics

import (
	"fmt"

	"github.com/ezoic/scigo/preprocessing"
	"gonum.org/v1/gonum/mat"
)

// StandardScaler centers columns to zero mean and unit population variance.
// Zero-variance columns are only centered.
type StandardScaler struct {
	inner *preprocessing.StandardScaler
}

// FitScaler learns per-column mean and standard deviation
func FitScaler(rows [][]float64) (*StandardScaler, error) {
	m, err := toDense(rows)
	if err != nil {
		return nil, err
	}
	inner := preprocessing.NewStandardScaler(true, true)
	if err := inner.Fit(m); err != nil {
		return nil, fmt.Errorf("failed to fit scaler: %w", err)
	}
	return &StandardScaler{inner: inner}, nil
}

// Mean returns the fitted per-column means
func (s *StandardScaler) Mean() []float64 { return s.inner.Mean }

// Scale returns the fitted per-column divisors
func (s *StandardScaler) Scale() []float64 { return s.inner.Scale }

// Transform returns scaled copies of rows
func (s *StandardScaler) Transform(rows [][]float64) ([][]float64, error) {
	if len(rows) == 0 {
		return [][]float64{}, nil
	}
	m, err := toDense(rows)
	if err != nil {
		return nil, err
	}
	scaled, err := s.inner.Transform(m)
	if err != nil {
		return nil, fmt.Errorf("failed to scale rows: %w", err)
	}
	return fromMatrix(scaled), nil
}

// FitTransform fits the scaler and returns the scaled rows
func FitTransform(rows [][]float64) (*StandardScaler, [][]float64, error) {
	s, err := FitScaler(rows)
	if err != nil {
		return nil, nil, err
	}
	scaled, err := s.Transform(rows)
	if err != nil {
		return nil, nil, err
	}
	return s, scaled, nil
}

func toDense(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("cannot scale empty rows")
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

func fromMatrix(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		row := make([]float64, c)
		for j := range row {
			row[j] = m.At(i, j)
		}
		out[i] = row
	}
	return out
}
