// Package ml contains the classifier used to score tourist safety: a random forest
// of CART trees, the standard scaler applied to its inputs, and the JSON artifact
// store both are persisted with.
package ml

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// ErrNotFitted is returned when transforming or predicting before Fit.
var ErrNotFitted = errors.New("ml: estimator is not fitted")

// StandardScaler centres each column on its mean and divides by its population
// standard deviation. Constant columns keep a scale of 1.
type StandardScaler struct {
	NFeatures int       `json:"n_features"`
	Mean      []float64 `json:"mean"`
	Scale     []float64 `json:"scale"`
}

// Fit computes per-column statistics from X.
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return errors.New("ml: cannot fit scaler on empty input")
	}
	n := len(X[0])
	s.NFeatures = n
	s.Mean = make([]float64, n)
	s.Scale = make([]float64, n)

	col := make([]float64, len(X))
	for j := 0; j < n; j++ {
		for i, row := range X {
			if len(row) != n {
				return fmt.Errorf("ml: row %d has %d features, want %d", i, len(row), n)
			}
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return nil
}

// Transform returns a scaled copy of x. The receiver is never modified.
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if s.NFeatures == 0 {
		return nil, ErrNotFitted
	}
	if len(x) != s.NFeatures {
		return nil, fmt.Errorf("ml: scaler expects %d features, got %d", s.NFeatures, len(x))
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// TransformAll scales every row of X.
func (s *StandardScaler) TransformAll(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}
