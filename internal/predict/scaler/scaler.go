package scaler

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

const epsilon = 1e-8

// Scaler standardizes features column-wise. Moments are computed once by Fit
// and reused unmutated for every later Transform on that lineage, including
// the single most-recent row at inference time.
type Scaler struct {
	means []float64
	stds  []float64
}

func New() *Scaler {
	return &Scaler{}
}

func (s *Scaler) Fit(x [][]float64) error {
	if len(x) == 0 || len(x[0]) == 0 {
		return errors.New("cannot fit scaler on empty matrix")
	}
	cols := len(x[0])
	column := make([]float64, len(x))
	s.means = make([]float64, cols)
	s.stds = make([]float64, cols)
	for j := 0; j < cols; j++ {
		for i := range x {
			if len(x[i]) != cols {
				return fmt.Errorf("row %d has %d columns, expected %d", i, len(x[i]), cols)
			}
			column[i] = x[i][j]
		}
		mean, std := stat.MeanStdDev(column, nil)
		if math.IsNaN(std) || std < epsilon {
			std = epsilon
		}
		s.means[j] = mean
		s.stds[j] = std
	}
	return nil
}

func (s *Scaler) Transform(x [][]float64) ([][]float64, error) {
	if s.means == nil {
		return nil, errors.New("scaler is not fitted")
	}
	out := make([][]float64, len(x))
	for i := range x {
		row, err := s.TransformRow(x[i])
		if err != nil {
			return nil, err
		}
		out[i] = row
	}
	return out, nil
}

func (s *Scaler) TransformRow(row []float64) ([]float64, error) {
	if s.means == nil {
		return nil, errors.New("scaler is not fitted")
	}
	if len(row) != len(s.means) {
		return nil, fmt.Errorf("row has %d columns, scaler was fit on %d", len(row), len(s.means))
	}
	out := make([]float64, len(row))
	for j := range row {
		out[j] = (row[j] - s.means[j]) / s.stds[j]
	}
	return out, nil
}

func (s *Scaler) FitTransform(x [][]float64) ([][]float64, error) {
	if err := s.Fit(x); err != nil {
		return nil, err
	}
	return s.Transform(x)
}
