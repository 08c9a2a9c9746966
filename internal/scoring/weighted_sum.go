package scoring

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// WeightedSum is the weighted additive model over min-max normalised criteria.
type WeightedSum struct{}

func (WeightedSum) Name() string { return "wsm" }

func (WeightedSum) Score(matrix mat.Matrix, weights, types []float64) ([]float64, error) {
	rows, cols, err := checkInputs(matrix, weights, types)
	if err != nil {
		return nil, err
	}

	nm := minMaxNormalize(matrix, types)
	pref := make([]float64, rows)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, nm)
		pref[i] = floats.Dot(row, weights)
	}
	return pref, nil
}

func (WeightedSum) Rank(pref []float64) []float64 { return Rank(pref) }
