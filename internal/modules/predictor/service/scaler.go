package service

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Scaler стандартизирует колонки: (x - mean) / std, std по генеральной совокупности.
// Колонка без разброса делится на 1.
type Scaler struct {
	mean []float64
	std  []float64
}

func FitScaler(x [][]float64) (*Scaler, error) {
	if len(x) == 0 {
		return nil, errors.New("scaler: no rows")
	}
	dim := len(x[0])
	s := &Scaler{mean: make([]float64, dim), std: make([]float64, dim)}
	col := make([]float64, len(x))
	for j := 0; j < dim; j++ {
		for i, row := range x {
			if len(row) != dim {
				return nil, errors.Errorf("scaler: row %d has %d columns, want %d", i, len(row), dim)
			}
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.mean[j], s.std[j] = mean, std
	}
	return s, nil
}

func (s *Scaler) Transform(row []float64) ([]float64, error) {
	if len(row) != len(s.mean) {
		return nil, errors.Errorf("scaler: got %d columns, want %d", len(row), len(s.mean))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.mean[j]) / s.std[j]
	}
	return out, nil
}

func (s *Scaler) TransformAll(x [][]float64) ([][]float64, error) {
	out := make([][]float64, len(x))
	for i, row := range x {
		r, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
