// Package scoring implements the MCDA ranking methods the fitter can wrap: each method
// turns a decision matrix, a weight vector and criteria types into a preference vector.
package scoring

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Criteria types. Profit criteria prefer higher values, cost criteria lower ones.
const (
	Profit = 1.0
	Cost   = -1.0
)

var (
	// ErrDimension is returned when the matrix, weights and types disagree in size.
	ErrDimension = errors.New("dimension mismatch")
	// ErrCriterionType is returned for a criterion type other than Profit or Cost.
	ErrCriterionType = errors.New("invalid criterion type")
)

// Method scores alternatives (matrix rows) over criteria (matrix columns).
type Method interface {
	Name() string
	Score(matrix mat.Matrix, weights, types []float64) ([]float64, error)
	Rank(pref []float64) []float64
}

// ByName returns the method registered under name.
func ByName(name string) (Method, error) {
	switch strings.ToLower(name) {
	case "topsis", "":
		return TOPSIS{}, nil
	case "wsm", "weighted_sum", "weighted-sum":
		return WeightedSum{}, nil
	default:
		return nil, fmt.Errorf("unknown ranking method %q", name)
	}
}

// Rank converts preferences into positional ranks: the highest preference gets rank 1,
// tied preferences share the mean of the positions they occupy.
func Rank(pref []float64) []float64 {
	n := len(pref)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return pref[idx[a]] > pref[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && pref[idx[j+1]] == pref[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// CriteriaTypes returns n profit criteria.
func CriteriaTypes(n int) []float64 {
	types := make([]float64, n)
	for i := range types {
		types[i] = Profit
	}
	return types
}

func checkInputs(matrix mat.Matrix, weights, types []float64) (rows, cols int, err error) {
	rows, cols = matrix.Dims()
	if rows == 0 || cols == 0 {
		return 0, 0, fmt.Errorf("empty decision matrix: %w", ErrDimension)
	}
	if len(weights) != cols {
		return 0, 0, fmt.Errorf("%d weights for %d criteria: %w", len(weights), cols, ErrDimension)
	}
	if len(types) != cols {
		return 0, 0, fmt.Errorf("%d types for %d criteria: %w", len(types), cols, ErrDimension)
	}
	for j, t := range types {
		if t != Profit && t != Cost {
			return 0, 0, fmt.Errorf("criterion %d: type must be 1 or -1, got %v: %w", j, t, ErrCriterionType)
		}
	}
	return rows, cols, nil
}

// minMaxNormalize rescales every column to [0, 1] so that 1 is always the preferred
// end. A constant column carries no information and is set to 1.
func minMaxNormalize(matrix mat.Matrix, types []float64) *mat.Dense {
	rows, cols := matrix.Dims()
	out := mat.NewDense(rows, cols, nil)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, matrix)
		lo, hi := floats.Min(col), floats.Max(col)
		for i, v := range col {
			var n float64
			switch {
			case hi == lo:
				n = 1
			case types[j] == Profit:
				n = (v - lo) / (hi - lo)
			default:
				n = (hi - v) / (hi - lo)
			}
			out.Set(i, j, n)
		}
	}
	return out
}
