package stfn

import "errors"

var (
	// ErrShape reports mismatched dimensions between the bounds, weights, criteria
	// types, decision matrix and target ranking.
	ErrShape = errors.New("shape mismatch")
	// ErrNotFitted is returned when an operation needs state that only exists after Fit.
	ErrNotFitted = errors.New("model not fitted")
	// ErrDegenerateSolution is returned when the optimiser's best point cannot be
	// normalised (its components sum to zero).
	ErrDegenerateSolution = errors.New("degenerate solution")
)
