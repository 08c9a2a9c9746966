// Package stfn identifies the criteria weights of an MCDA method from a reference
// ranking. Each criterion's weight lives in a bounded interval; a black-box optimiser
// searches the box for the vector whose induced ranking is closest to the reference, and
// the interval plus the found point describe the weight as a triangular fuzzy number.
package stfn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/MikeSquared-Agency/Reidentify/internal/fuzzy"
	"github.com/MikeSquared-Agency/Reidentify/internal/optim"
	"github.com/MikeSquared-Agency/Reidentify/internal/ranking"
	"github.com/MikeSquared-Agency/Reidentify/internal/scoring"
)

// Model fits the weights of a base ranking method. It is not safe for concurrent Fit
// calls; weights are replaced wholesale by every successful Fit.
type Model struct {
	base     scoring.Method
	solve    optim.Solver
	bounds   *Bounds
	types    []float64
	distance ranking.Distance
	penalty  float64
	logger   *slog.Logger

	weights  []float64
	solution []float64
	eval     *Evaluator
	fitted   bool
}

// Option customises a Model.
type Option func(*Model)

// WithCriteriaTypes sets the per-criterion direction (1 profit, -1 cost). The default
// treats every criterion as profit.
func WithCriteriaTypes(types []float64) Option {
	return func(m *Model) { m.types = append([]float64(nil), types...) }
}

// WithDistance sets the rank distance minimised during fitting. Default: Spearman.
func WithDistance(d ranking.Distance) Option {
	return func(m *Model) { m.distance = d }
}

// WithPenalty sets the fitness of degenerate candidates. Default: DefaultPenalty.
func WithPenalty(p float64) Option {
	return func(m *Model) { m.penalty = p }
}

// WithLogger sets the logger used to report fits. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// New builds a model from an optimiser, a base ranking method, a (criteria × 2) bounds
// matrix and optional initial weights (nil means no weights until the first Fit).
func New(solve optim.Solver, base scoring.Method, bounds mat.Matrix, initial []float64, opts ...Option) (*Model, error) {
	if solve == nil {
		return nil, errors.New("nil solver")
	}
	if base == nil {
		return nil, errors.New("nil ranking method")
	}
	b, err := NewBounds(bounds)
	if err != nil {
		return nil, err
	}
	if initial != nil && len(initial) != b.Len() {
		return nil, fmt.Errorf("%d initial weights for %d criteria: %w", len(initial), b.Len(), ErrShape)
	}

	m := &Model{
		base:     base,
		solve:    solve,
		bounds:   b,
		distance: ranking.Spearman,
		penalty:  DefaultPenalty,
		logger:   slog.Default(),
	}
	if initial != nil {
		m.weights = append([]float64(nil), initial...)
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.types == nil {
		m.types = scoring.CriteriaTypes(b.Len())
	}
	if len(m.types) != b.Len() {
		return nil, fmt.Errorf("%d criteria types for %d criteria: %w", len(m.types), b.Len(), ErrShape)
	}
	return m, nil
}

// Criteria returns the number of criteria.
func (m *Model) Criteria() int { return m.bounds.Len() }

// Lower returns a copy of the lower weight bounds.
func (m *Model) Lower() []float64 { return m.bounds.Lower() }

// Upper returns a copy of the upper weight bounds.
func (m *Model) Upper() []float64 { return m.bounds.Upper() }

// Fitted reports whether Fit has completed at least once.
func (m *Model) Fitted() bool { return m.fitted }

// FuzzyNumbers returns TFN(lb[i], cores[i], ub[i]) for every criterion.
func (m *Model) FuzzyNumbers(cores []float64) ([]fuzzy.TFN, error) {
	return m.bounds.FuzzyNumbers(cores)
}

// Weights returns a copy of the current weights: the normalised result of the last Fit,
// or the initial weights before any fit.
func (m *Model) Weights() ([]float64, error) {
	if m.weights == nil {
		return nil, ErrNotFitted
	}
	return append([]float64(nil), m.weights...), nil
}

// Solution returns the raw optimiser point behind the current weights.
func (m *Model) Solution() ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	return append([]float64(nil), m.solution...), nil
}

// Fitness scores a raw candidate against the matrix and target of the last Fit.
func (m *Model) Fitness(raw []float64) (float64, error) {
	if m.eval == nil {
		return 0, ErrNotFitted
	}
	return m.eval.Evaluate(raw)
}

// Fit searches the bounds for the weights whose ranking of matrix best reproduces target
// and stores them normalised. On any error the previous weights are kept.
func (m *Model) Fit(ctx context.Context, matrix mat.Matrix, target []float64) error {
	if matrix != nil {
		if _, cols := matrix.Dims(); cols != m.Criteria() {
			return fmt.Errorf("decision matrix has %d criteria, bounds have %d: %w", cols, m.Criteria(), ErrShape)
		}
	}
	eval, err := NewEvaluator(m.base, matrix, m.types, target, m.distance, m.penalty)
	if err != nil {
		return err
	}

	problem := optim.Problem{
		Objective: eval.Evaluate,
		Lower:     m.bounds.Lower(),
		Upper:     m.bounds.Upper(),
	}

	start := time.Now()
	res, err := m.solve(ctx, problem)
	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}
	if len(res.Solution) != m.Criteria() {
		return fmt.Errorf("optimizer returned %d values for %d criteria: %w", len(res.Solution), m.Criteria(), ErrShape)
	}
	weights, err := scoring.Normalize(res.Solution)
	if err != nil {
		return fmt.Errorf("normalize %v: %w", res.Solution, ErrDegenerateSolution)
	}
	if err := scoring.Validate(weights); err != nil {
		// bounds that admit negative weights are allowed; the result is kept as is
		m.logger.Warn("fitted weights are not a convex combination", "error", err)
	}

	m.weights = weights
	m.solution = append([]float64(nil), res.Solution...)
	m.eval = eval
	m.fitted = true

	m.logger.Info("model fitted",
		"criteria", m.Criteria(),
		"fitness", res.Fitness,
		"evaluations", res.Evaluations,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
