// Package optim provides the box-constrained black-box optimisers used to search for
// weight vectors. Any Solver only needs an objective and per-dimension bounds.
package optim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// Objective scores a candidate point; lower is better. Implementations must be safe for
// concurrent use because solvers may evaluate a population in parallel.
type Objective func(x []float64) (float64, error)

// Problem is a minimisation problem over the box [Lower, Upper].
type Problem struct {
	Objective Objective
	Lower     []float64
	Upper     []float64
}

// Dim returns the number of decision variables.
func (p Problem) Dim() int { return len(p.Lower) }

// Validate checks the problem is well formed.
func (p Problem) Validate() error {
	if p.Objective == nil {
		return errors.New("problem has no objective")
	}
	if len(p.Lower) == 0 {
		return errors.New("problem has no dimensions")
	}
	if len(p.Lower) != len(p.Upper) {
		return fmt.Errorf("%d lower bounds but %d upper bounds", len(p.Lower), len(p.Upper))
	}
	for i := range p.Lower {
		if math.IsNaN(p.Lower[i]) || math.IsNaN(p.Upper[i]) || p.Lower[i] > p.Upper[i] {
			return fmt.Errorf("dimension %d: invalid bounds [%v, %v]", i, p.Lower[i], p.Upper[i])
		}
	}
	return nil
}

// Clip projects x onto the box in place.
func (p Problem) Clip(x []float64) {
	for i := range x {
		x[i] = math.Min(math.Max(x[i], p.Lower[i]), p.Upper[i])
	}
}

// Result is the best point a solver found.
type Result struct {
	Solution    []float64 `json:"solution"`
	Fitness     float64   `json:"fitness"`
	Evaluations int       `json:"evaluations"`
	Iterations  int       `json:"iterations"`
}

// Solver minimises a problem and returns the best point found. Errors raised by the
// objective are returned unchanged.
type Solver func(ctx context.Context, p Problem) (Result, error)

// Options configures the solvers built by New.
type Options struct {
	Epochs         int
	PopSize        int
	Seed           uint64
	Workers        int
	MaxEvaluations int
}

// New returns the solver registered under name.
func New(name string, o Options, logger *slog.Logger) (Solver, error) {
	switch strings.ToLower(name) {
	case "pso", "":
		pso := NewPSO(o.Epochs, o.PopSize, o.Seed)
		pso.Workers = o.Workers
		pso.Logger = logger
		return pso.Solve, nil
	case "nelder-mead", "neldermead":
		return (&Local{Method: MethodNelderMead, MaxEvaluations: o.MaxEvaluations, Logger: logger}).Solve, nil
	case "cmaes", "cma-es":
		return (&Local{Method: MethodCMAES, MaxEvaluations: o.MaxEvaluations, Population: o.PopSize, Logger: logger}).Solve, nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", name)
	}
}

// fitnessOf maps NaN to +Inf so comparisons stay total.
func fitnessOf(f float64) float64 {
	if math.IsNaN(f) {
		return math.Inf(1)
	}
	return f
}
