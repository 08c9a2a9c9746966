package optim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sphere has its minimum 0 at (0.3, 0.3, ...).
func sphere(x []float64) (float64, error) {
	var s float64
	for _, v := range x {
		s += (v - 0.3) * (v - 0.3)
	}
	return s, nil
}

func unitBox(dim int) ([]float64, []float64) {
	lb := make([]float64, dim)
	ub := make([]float64, dim)
	for i := range ub {
		ub[i] = 1
	}
	return lb, ub
}

func TestProblemValidate(t *testing.T) {
	lb, ub := unitBox(2)
	tests := []struct {
		name string
		p    Problem
		ok   bool
	}{
		{"valid", Problem{Objective: sphere, Lower: lb, Upper: ub}, true},
		{"no objective", Problem{Lower: lb, Upper: ub}, false},
		{"no dimensions", Problem{Objective: sphere}, false},
		{"length mismatch", Problem{Objective: sphere, Lower: lb, Upper: ub[:1]}, false},
		{"inverted bounds", Problem{Objective: sphere, Lower: []float64{1}, Upper: []float64{0}}, false},
		{"nan bound", Problem{Objective: sphere, Lower: []float64{math.NaN()}, Upper: []float64{1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPSOConvergesOnSphere(t *testing.T) {
	lb, ub := unitBox(2)
	pso := NewPSO(60, 20, 1)
	pso.Logger = discardLogger()

	res, err := pso.Solve(context.Background(), Problem{Objective: sphere, Lower: lb, Upper: ub})
	require.NoError(t, err)
	assert.Less(t, res.Fitness, 1e-2)
	assert.Len(t, res.Solution, 2)
	assert.Equal(t, 20*61, res.Evaluations)
	assert.Equal(t, 60, res.Iterations)
	for _, v := range res.Solution {
		assert.InDelta(t, 0.3, v, 0.1)
	}
}

func TestPSORespectsBounds(t *testing.T) {
	lb := []float64{0.2, -1}
	ub := []float64{0.4, -0.5}
	var mu sync.Mutex
	var outside int
	obj := func(x []float64) (float64, error) {
		mu.Lock()
		defer mu.Unlock()
		for i, v := range x {
			if v < lb[i] || v > ub[i] {
				outside++
			}
		}
		// pulls towards (1, 1), outside the box
		return (x[0]-1)*(x[0]-1) + (x[1]-1)*(x[1]-1), nil
	}

	pso := NewPSO(30, 10, 7)
	pso.Workers = 4
	pso.Logger = discardLogger()
	res, err := pso.Solve(context.Background(), Problem{Objective: obj, Lower: lb, Upper: ub})
	require.NoError(t, err)
	assert.Zero(t, outside, "objective evaluated outside the box")
	assert.InDelta(t, 0.4, res.Solution[0], 1e-3)
	assert.InDelta(t, -0.5, res.Solution[1], 1e-3)
}

func TestPSODeterministic(t *testing.T) {
	lb, ub := unitBox(3)
	run := func(workers int) Result {
		pso := NewPSO(15, 8, 42)
		pso.Workers = workers
		pso.Logger = discardLogger()
		res, err := pso.Solve(context.Background(), Problem{Objective: sphere, Lower: lb, Upper: ub})
		require.NoError(t, err)
		return res
	}

	a, b, c := run(1), run(1), run(4)
	assert.Equal(t, a.Solution, b.Solution)
	assert.Equal(t, a.Fitness, b.Fitness)
	assert.Equal(t, a.Solution, c.Solution, "worker count must not change the result")
}

func TestPSOPropagatesObjectiveError(t *testing.T) {
	boom := errors.New("boom")
	lb, ub := unitBox(2)
	pso := NewPSO(5, 4, 0)
	pso.Logger = discardLogger()
	_, err := pso.Solve(context.Background(), Problem{
		Objective: func([]float64) (float64, error) { return 0, boom },
		Lower:     lb,
		Upper:     ub,
	})
	assert.ErrorIs(t, err, boom)
}

func TestPSOCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	lb, ub := unitBox(2)
	_, err := NewPSO(5, 4, 0).Solve(ctx, Problem{Objective: sphere, Lower: lb, Upper: ub})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPSONaNObjectiveNeverWins(t *testing.T) {
	lb, ub := unitBox(1)
	obj := func(x []float64) (float64, error) {
		if x[0] < 0.5 {
			return math.NaN(), nil
		}
		return x[0], nil
	}
	pso := NewPSO(20, 10, 3)
	pso.Logger = discardLogger()
	res, err := pso.Solve(context.Background(), Problem{Objective: obj, Lower: lb, Upper: ub})
	require.NoError(t, err)
	assert.False(t, math.IsNaN(res.Fitness))
	assert.GreaterOrEqual(t, res.Solution[0], 0.5)
}

func TestLocalNelderMead(t *testing.T) {
	lb, ub := unitBox(2)
	l := &Local{Method: MethodNelderMead, MaxEvaluations: 2000, Logger: discardLogger()}
	res, err := l.Solve(context.Background(), Problem{Objective: sphere, Lower: lb, Upper: ub})
	require.NoError(t, err)
	assert.Less(t, res.Fitness, 1e-4)
	for _, v := range res.Solution {
		assert.InDelta(t, 0.3, v, 1e-2)
	}
	assert.Positive(t, res.Evaluations)
}

func TestLocalClipsToBox(t *testing.T) {
	lb := []float64{0, 0}
	ub := []float64{0.1, 0.1}
	l := &Local{Method: MethodNelderMead, MaxEvaluations: 500, Logger: discardLogger()}
	res, err := l.Solve(context.Background(), Problem{Objective: sphere, Lower: lb, Upper: ub})
	require.NoError(t, err)
	for i, v := range res.Solution {
		assert.GreaterOrEqual(t, v, lb[i])
		assert.LessOrEqual(t, v, ub[i])
	}
}

func TestLocalPropagatesObjectiveError(t *testing.T) {
	boom := errors.New("boom")
	lb, ub := unitBox(2)
	l := &Local{Method: MethodNelderMead, MaxEvaluations: 100, Logger: discardLogger()}
	_, err := l.Solve(context.Background(), Problem{
		Objective: func([]float64) (float64, error) { return 0, boom },
		Lower:     lb,
		Upper:     ub,
	})
	assert.ErrorIs(t, err, boom)
}

func TestNew(t *testing.T) {
	opts := Options{Epochs: 5, PopSize: 4, MaxEvaluations: 200}
	for _, name := range []string{"pso", "", "nelder-mead", "cmaes"} {
		solve, err := New(name, opts, discardLogger())
		require.NoError(t, err, name)
		require.NotNil(t, solve, name)
	}
	_, err := New("simulated-annealing", opts, discardLogger())
	assert.Error(t, err)
}
