package optim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/optimize"
)

// Local methods backed by gonum/optimize.
const (
	MethodNelderMead = "nelder-mead"
	MethodCMAES      = "cmaes"
)

// Local adapts gonum's unconstrained minimisers to the box: every point the method asks
// for is projected onto the bounds before it is scored, and the returned point is
// projected the same way. The search starts from the centre of the box.
type Local struct {
	Method         string
	MaxEvaluations int
	// Population is the CMA-ES population size; zero picks gonum's default.
	Population int
	Logger     *slog.Logger
}

func (l *Local) Solve(ctx context.Context, p Problem) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstErr != nil
	}

	dim := p.Dim()
	f := func(x []float64) float64 {
		if failed() {
			return math.Inf(1)
		}
		if err := ctx.Err(); err != nil {
			fail(err)
			return math.Inf(1)
		}
		y := append([]float64(nil), x...)
		p.Clip(y)
		v, err := p.Objective(y)
		if err != nil {
			fail(err)
			return math.Inf(1)
		}
		return fitnessOf(v)
	}

	x0 := make([]float64, dim)
	var width float64
	for d := range x0 {
		x0[d] = (p.Lower[d] + p.Upper[d]) / 2
		width += p.Upper[d] - p.Lower[d]
	}
	width /= float64(dim)

	maxEvals := l.MaxEvaluations
	if maxEvals <= 0 {
		maxEvals = 5000
	}
	settings := &optimize.Settings{FuncEvaluations: maxEvals}

	var method optimize.Method
	switch l.Method {
	case MethodCMAES:
		step := 0.3 * width
		if step <= 0 {
			step = 0.5
		}
		method = &optimize.CmaEsChol{Population: l.Population, InitStepSize: step}
	case MethodNelderMead, "":
		method = &optimize.NelderMead{}
	default:
		return Result{}, fmt.Errorf("unknown local method %q", l.Method)
	}

	res, err := optimize.Minimize(optimize.Problem{Func: f}, x0, settings, method)
	mu.Lock()
	objErr := firstErr
	mu.Unlock()
	if objErr != nil {
		return Result{}, objErr
	}
	if err != nil {
		return Result{}, fmt.Errorf("minimize: %w", err)
	}

	x := append([]float64(nil), res.X...)
	p.Clip(x)
	logger.Debug("local search finished",
		"method", l.Method,
		"status", res.Status,
		"evaluations", res.Stats.FuncEvaluations,
		"best_fitness", res.F,
	)
	return Result{
		Solution:    x,
		Fitness:     res.F,
		Evaluations: res.Stats.FuncEvaluations,
		Iterations:  res.Stats.MajorIterations,
	}, nil
}
