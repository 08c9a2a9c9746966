package scoring

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// TOPSIS ranks alternatives by their relative closeness to the ideal solution.
//
//	closeness = d(anti-ideal) / (d(ideal) + d(anti-ideal))
//
// The matrix is min-max normalised per criterion and weighted before the ideal and
// anti-ideal points are taken column-wise.
type TOPSIS struct{}

func (TOPSIS) Name() string { return "topsis" }

// Score returns the closeness coefficient of every alternative, in [0, 1].
func (TOPSIS) Score(matrix mat.Matrix, weights, types []float64) ([]float64, error) {
	rows, cols, err := checkInputs(matrix, weights, types)
	if err != nil {
		return nil, err
	}

	nm := minMaxNormalize(matrix, types)
	nm.Apply(func(_, j int, v float64) float64 { return v * weights[j] }, nm)

	ideal := make([]float64, cols)
	anti := make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, nm)
		ideal[j] = floats.Max(col)
		anti[j] = floats.Min(col)
	}

	pref := make([]float64, rows)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, nm)
		dp := floats.Distance(row, ideal, 2)
		dm := floats.Distance(row, anti, 2)
		if dp+dm == 0 {
			// every alternative sits on both reference points
			pref[i] = 0
			continue
		}
		pref[i] = dm / (dp + dm)
	}
	return pref, nil
}

func (TOPSIS) Rank(pref []float64) []float64 { return Rank(pref) }
