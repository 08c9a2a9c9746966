package scoring

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrZeroSum is returned when a weight vector cannot be normalised because its
	// components sum to zero or to a non-finite value.
	ErrZeroSum = errors.New("weights sum to zero")
	// ErrInvalidWeights is returned by Validate.
	ErrInvalidWeights = errors.New("invalid weights")
)

// WeightTolerance is the allowed deviation of a normalised weight vector's sum from 1.
const WeightTolerance = 1e-6

// Sum returns the total of all weights.
func Sum(w []float64) float64 {
	return floats.Sum(w)
}

// Normalize divides a raw weight vector by its own sum. The input is left untouched.
// Non-finite components and a zero sum are ErrZeroSum. A sum that only overflows is
// taken after scaling by the largest magnitude.
func Normalize(raw []float64) ([]float64, error) {
	for _, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrZeroSum
		}
	}
	out := make([]float64, len(raw))
	s := Sum(raw)
	if math.IsInf(s, 0) || math.IsNaN(s) {
		scale := math.Max(floats.Max(raw), -floats.Min(raw))
		for i, v := range raw {
			out[i] = v / scale
		}
		raw, s = out, Sum(out)
	}
	if s == 0 {
		return nil, ErrZeroSum
	}
	for i, v := range raw {
		out[i] = v / s
	}
	return out, nil
}

// Validate checks that weights sum to 1.0 and none are negative.
func Validate(w []float64) error {
	if len(w) == 0 {
		return fmt.Errorf("empty weight vector: %w", ErrInvalidWeights)
	}
	if math.Abs(Sum(w)-1.0) > WeightTolerance {
		return fmt.Errorf("weights sum to %.6f, must sum to 1.0: %w", Sum(w), ErrInvalidWeights)
	}
	for _, v := range w {
		if v < 0 {
			return fmt.Errorf("negative weight %f: %w", v, ErrInvalidWeights)
		}
	}
	return nil
}
