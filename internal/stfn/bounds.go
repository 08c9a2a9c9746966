package stfn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/MikeSquared-Agency/Reidentify/internal/fuzzy"
)

// Bounds holds the per-criterion search interval [lb[i], ub[i]].
type Bounds struct {
	lb []float64
	ub []float64
}

// NewBounds reads a (criteria × 2) matrix: column 0 is the lower bound, column 1 the
// upper bound.
func NewBounds(m mat.Matrix) (*Bounds, error) {
	if m == nil {
		return nil, fmt.Errorf("nil bounds matrix: %w", ErrShape)
	}
	rows, cols := m.Dims()
	if cols != 2 {
		return nil, fmt.Errorf("bounds matrix has %d columns, want 2: %w", cols, ErrShape)
	}
	if rows == 0 {
		return nil, fmt.Errorf("bounds matrix has no rows: %w", ErrShape)
	}

	b := &Bounds{
		lb: mat.Col(nil, 0, m),
		ub: mat.Col(nil, 1, m),
	}
	for i := range b.lb {
		if math.IsNaN(b.lb[i]) || math.IsNaN(b.ub[i]) || b.lb[i] > b.ub[i] {
			return nil, fmt.Errorf("criterion %d: lower bound %v above upper bound %v: %w", i, b.lb[i], b.ub[i], ErrShape)
		}
	}
	return b, nil
}

// Len returns the number of criteria.
func (b *Bounds) Len() int { return len(b.lb) }

// Lower returns a copy of the lower bounds.
func (b *Bounds) Lower() []float64 { return append([]float64(nil), b.lb...) }

// Upper returns a copy of the upper bounds.
func (b *Bounds) Upper() []float64 { return append([]float64(nil), b.ub...) }

// FuzzyNumbers builds one TFN(lb[i], cores[i], ub[i]) per criterion. Cores are not
// clamped to their bounds.
func (b *Bounds) FuzzyNumbers(cores []float64) ([]fuzzy.TFN, error) {
	if len(cores) != b.Len() {
		return nil, fmt.Errorf("%d cores for %d criteria: %w", len(cores), b.Len(), ErrShape)
	}
	return fuzzy.Build(b.lb, cores, b.ub), nil
}
