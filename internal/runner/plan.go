package runner

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/MikeSquared-Agency/Reidentify/internal/config"
	"github.com/MikeSquared-Agency/Reidentify/internal/optim"
	"github.com/MikeSquared-Agency/Reidentify/internal/ranking"
	"github.com/MikeSquared-Agency/Reidentify/internal/scoring"
	"github.com/MikeSquared-Agency/Reidentify/internal/store"
)

// ErrInvalidSpec wraps every reason a fit request is rejected before it is queued.
var ErrInvalidSpec = errors.New("invalid fit spec")

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidSpec)
}

// Plan is a validated fit request resolved against the service defaults.
type Plan struct {
	Matrix  *mat.Dense
	Target  []float64
	Bounds  *mat.Dense
	Types   []float64
	Weights []float64

	Method       scoring.Method
	MethodName   string
	Distance     ranking.Distance
	DistanceName string
	Penalty      float64

	OptimizerName string
	Optimizer     optim.Options

	Timeout time.Duration
}

// Matrix converts row-major JSON rows into a dense matrix. Rows must be non-empty,
// rectangular and finite.
func Matrix(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, invalid("empty matrix")
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, invalid("row %d has %d values, want %d", i, len(row), cols)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, invalid("value at (%d, %d) is not finite", i, j)
			}
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

// NewPlan validates spec and fills unset fields from cfg.
func NewPlan(spec store.FitSpec, cfg *config.Config) (*Plan, error) {
	matrix, err := Matrix(spec.Matrix)
	if err != nil {
		return nil, fmt.Errorf("matrix: %w", err)
	}
	rows, cols := matrix.Dims()
	if cfg.Runner.MaxAlternatives > 0 && rows > cfg.Runner.MaxAlternatives {
		return nil, invalid("%d alternatives exceed the limit of %d", rows, cfg.Runner.MaxAlternatives)
	}
	if len(spec.Target) != rows {
		return nil, invalid("target ranks %d alternatives, matrix has %d", len(spec.Target), rows)
	}
	if len(spec.Bounds) != cols {
		return nil, invalid("%d bounds for %d criteria", len(spec.Bounds), cols)
	}
	bounds, err := Matrix(spec.Bounds)
	if err != nil {
		return nil, fmt.Errorf("bounds: %w", err)
	}
	if _, bc := bounds.Dims(); bc != 2 {
		return nil, invalid("bounds need [lower, upper] pairs")
	}
	for i := 0; i < cols; i++ {
		if bounds.At(i, 0) > bounds.At(i, 1) {
			return nil, invalid("criterion %d: lower bound above upper bound", i)
		}
	}

	types := spec.Types
	if types == nil {
		types = scoring.CriteriaTypes(cols)
	}
	if len(types) != cols {
		return nil, invalid("%d criteria types for %d criteria", len(types), cols)
	}
	for i, t := range types {
		if t != scoring.Profit && t != scoring.Cost {
			return nil, invalid("criterion %d: type %v is neither 1 nor -1", i, t)
		}
	}
	if spec.Weights != nil && len(spec.Weights) != cols {
		return nil, invalid("%d initial weights for %d criteria", len(spec.Weights), cols)
	}
	if spec.Epochs < 0 || spec.PopSize < 0 || spec.Workers < 0 || spec.TimeoutSeconds < 0 {
		return nil, invalid("negative optimizer setting")
	}

	p := &Plan{
		Matrix:        matrix,
		Target:        spec.Target,
		Bounds:        bounds,
		Types:         types,
		Weights:       spec.Weights,
		MethodName:    orDefault(spec.Method, cfg.Fitting.Method),
		DistanceName:  orDefault(spec.Distance, cfg.Fitting.Distance),
		Penalty:       spec.Penalty,
		OptimizerName: orDefault(spec.Optimizer, cfg.Optimizer.Name),
		Optimizer: optim.Options{
			Epochs:         orDefaultInt(spec.Epochs, cfg.Optimizer.Epochs),
			PopSize:        orDefaultInt(spec.PopSize, cfg.Optimizer.PopSize),
			Seed:           cfg.Optimizer.Seed,
			Workers:        orDefaultInt(spec.Workers, cfg.Optimizer.Workers),
			MaxEvaluations: cfg.Optimizer.MaxEvaluations,
		},
		Timeout: cfg.DefaultTimeout(),
	}
	if spec.Seed != nil {
		p.Optimizer.Seed = *spec.Seed
	}
	if p.Penalty == 0 {
		p.Penalty = cfg.Fitting.Penalty
	}
	if spec.TimeoutSeconds > 0 {
		p.Timeout = time.Duration(spec.TimeoutSeconds) * time.Second
	}

	if p.Method, err = scoring.ByName(p.MethodName); err != nil {
		return nil, invalid("%v", err)
	}
	p.MethodName = p.Method.Name()
	if p.Distance, err = ranking.ByName(p.DistanceName); err != nil {
		return nil, invalid("%v", err)
	}
	if _, err := optim.New(p.OptimizerName, p.Optimizer, slog.Default()); err != nil {
		return nil, invalid("%v", err)
	}
	return p, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
