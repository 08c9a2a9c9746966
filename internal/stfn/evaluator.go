package stfn

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/MikeSquared-Agency/Reidentify/internal/ranking"
	"github.com/MikeSquared-Agency/Reidentify/internal/scoring"
)

// DefaultPenalty is the fitness assigned to candidates that cannot be turned into a
// weight vector or whose ranking cannot be compared with the target.
const DefaultPenalty = 1e12

// Evaluator scores raw candidate weight vectors against a fixed decision problem. It
// holds no mutable state and is safe for concurrent use as long as the wrapped method is.
type Evaluator struct {
	base     scoring.Method
	matrix   mat.Matrix
	types    []float64
	target   []float64
	distance ranking.Distance
	penalty  float64
}

// NewEvaluator binds a ranking method to one decision matrix and target ranking.
func NewEvaluator(base scoring.Method, matrix mat.Matrix, types, target []float64, distance ranking.Distance, penalty float64) (*Evaluator, error) {
	if base == nil {
		return nil, errors.New("nil ranking method")
	}
	if matrix == nil {
		return nil, fmt.Errorf("nil decision matrix: %w", ErrShape)
	}
	rows, cols := matrix.Dims()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("empty decision matrix: %w", ErrShape)
	}
	if len(types) != cols {
		return nil, fmt.Errorf("%d criteria types for %d criteria: %w", len(types), cols, ErrShape)
	}
	if len(target) != rows {
		return nil, fmt.Errorf("target ranks %d alternatives, matrix has %d: %w", len(target), rows, ErrShape)
	}
	if distance == nil {
		distance = ranking.Spearman
	}
	if penalty <= 0 || math.IsNaN(penalty) || math.IsInf(penalty, 0) {
		penalty = DefaultPenalty
	}
	return &Evaluator{
		base:     base,
		matrix:   matrix,
		types:    append([]float64(nil), types...),
		target:   append([]float64(nil), target...),
		distance: distance,
		penalty:  penalty,
	}, nil
}

// Criteria returns the number of criteria the evaluator expects.
func (e *Evaluator) Criteria() int {
	_, cols := e.matrix.Dims()
	return cols
}

// Penalty returns the value substituted for degenerate candidates.
func (e *Evaluator) Penalty() float64 { return e.penalty }

// Evaluate normalises raw, ranks the alternatives with the wrapped method and returns
// the distance between that ranking and the target. A raw vector summing to zero scores
// the penalty instead of failing, so a search never aborts on it. Errors from the
// ranking method are returned unchanged.
func (e *Evaluator) Evaluate(raw []float64) (float64, error) {
	if len(raw) != e.Criteria() {
		return 0, fmt.Errorf("%d weights for %d criteria: %w", len(raw), e.Criteria(), ErrShape)
	}
	w, err := scoring.Normalize(raw)
	if errors.Is(err, scoring.ErrZeroSum) {
		return e.penalty, nil
	}
	if err != nil {
		return 0, err
	}

	pref, err := e.base.Score(e.matrix, w, e.types)
	if err != nil {
		return 0, err
	}
	rank := e.base.Rank(pref)
	if len(rank) != len(e.target) {
		return 0, fmt.Errorf("ranking method returned %d ranks for %d alternatives: %w", len(rank), len(e.target), ErrShape)
	}

	d := e.distance(rank, e.target)
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return e.penalty, nil
	}
	return d, nil
}
