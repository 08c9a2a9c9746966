package optim

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
)

// PSO is the canonical global-best particle swarm: inertia W, cognitive C1 and social C2
// coefficients, velocities limited to half the box width and positions clipped to the
// box. Random draws are made in a fixed order from a PCG seeded with Seed, so a run is
// reproducible regardless of Workers.
type PSO struct {
	Epochs  int
	PopSize int
	C1      float64
	C2      float64
	W       float64
	Seed    uint64
	Workers int
	Logger  *slog.Logger
}

// NewPSO returns a swarm with the usual coefficients (c1 = c2 = 2.05, w = 0.4).
func NewPSO(epochs, popSize int, seed uint64) *PSO {
	if epochs <= 0 {
		epochs = 100
	}
	if popSize <= 0 {
		popSize = 50
	}
	return &PSO{
		Epochs:  epochs,
		PopSize: popSize,
		C1:      2.05,
		C2:      2.05,
		W:       0.4,
		Seed:    seed,
		Workers: 1,
	}
}

// Solve runs the swarm for Epochs iterations after the initial population.
func (s *PSO) Solve(ctx context.Context, p Problem) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dim, n := p.Dim(), s.PopSize
	rng := rand.New(rand.NewPCG(s.Seed, s.Seed^0x9e3779b97f4a7c15))

	vmax := make([]float64, dim)
	for d := range vmax {
		vmax[d] = 0.5 * (p.Upper[d] - p.Lower[d])
	}

	pos := make([][]float64, n)
	vel := make([][]float64, n)
	for i := 0; i < n; i++ {
		pos[i] = make([]float64, dim)
		vel[i] = make([]float64, dim)
		for d := 0; d < dim; d++ {
			pos[i][d] = p.Lower[d] + rng.Float64()*(p.Upper[d]-p.Lower[d])
			vel[i][d] = (2*rng.Float64() - 1) * vmax[d]
		}
	}

	fit := make([]float64, n)
	if err := s.evaluate(ctx, p.Objective, pos, fit); err != nil {
		return Result{}, err
	}
	evals := n

	best := make([][]float64, n)
	bestFit := make([]float64, n)
	g := 0
	for i := 0; i < n; i++ {
		best[i] = append([]float64(nil), pos[i]...)
		bestFit[i] = fit[i]
		if bestFit[i] < bestFit[g] {
			g = i
		}
	}
	gbest := append([]float64(nil), best[g]...)
	gbestFit := bestFit[g]

	for epoch := 1; epoch <= s.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		for i := 0; i < n; i++ {
			for d := 0; d < dim; d++ {
				r1, r2 := rng.Float64(), rng.Float64()
				v := s.W*vel[i][d] +
					s.C1*r1*(best[i][d]-pos[i][d]) +
					s.C2*r2*(gbest[d]-pos[i][d])
				v = min(max(v, -vmax[d]), vmax[d])
				vel[i][d] = v
				pos[i][d] += v
			}
			p.Clip(pos[i])
		}

		if err := s.evaluate(ctx, p.Objective, pos, fit); err != nil {
			return Result{}, err
		}
		evals += n

		for i := 0; i < n; i++ {
			if fit[i] < bestFit[i] {
				bestFit[i] = fit[i]
				copy(best[i], pos[i])
			}
			if fit[i] < gbestFit {
				gbestFit = fit[i]
				copy(gbest, pos[i])
			}
		}
		logger.Debug("pso epoch", "epoch", epoch, "best_fitness", gbestFit)
	}

	return Result{
		Solution:    gbest,
		Fitness:     gbestFit,
		Evaluations: evals,
		Iterations:  s.Epochs,
	}, nil
}

// evaluate scores every position, at most Workers at a time.
func (s *PSO) evaluate(ctx context.Context, obj Objective, xs [][]float64, out []float64) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.Workers))
	for i := range xs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := obj(xs[i])
			if err != nil {
				return err
			}
			out[i] = fitnessOf(f)
			return nil
		})
	}
	return g.Wait()
}
