// Package fuzzy holds the triangular fuzzy numbers used to describe per-criterion
// weight uncertainty.
package fuzzy

import "fmt"

// TFN is a triangular fuzzy number with lower support A, core M and upper support B.
// Values are never mutated after construction.
type TFN struct {
	A float64 `json:"a"`
	M float64 `json:"m"`
	B float64 `json:"b"`
}

// New returns the triangular fuzzy number (a, m, b) without validating the ordering.
func New(a, m, b float64) TFN {
	return TFN{A: a, M: m, B: b}
}

// Valid reports whether a ≤ m ≤ b holds.
func (t TFN) Valid() bool {
	return t.A <= t.M && t.M <= t.B
}

// Membership returns the degree to which x belongs to t. A side of zero width acts as a
// crisp edge at the core.
func (t TFN) Membership(x float64) float64 {
	switch {
	case x == t.M:
		return 1
	case x < t.A || x > t.B:
		return 0
	case x < t.M:
		if t.M == t.A {
			return 0
		}
		return (x - t.A) / (t.M - t.A)
	default:
		if t.B == t.M {
			return 0
		}
		return (t.B - x) / (t.B - t.M)
	}
}

// Centroid defuzzifies t to the centre of gravity of its triangle.
func (t TFN) Centroid() float64 {
	return (t.A + t.M + t.B) / 3
}

func (t TFN) String() string {
	return fmt.Sprintf("TFN(%g, %g, %g)", t.A, t.M, t.B)
}

// Build pairs every core with its lower and upper bound. Cores outside [lb, ub] are
// kept as given. Callers must pass slices of equal length.
func Build(lb, cores, ub []float64) []TFN {
	out := make([]TFN, len(cores))
	for i, m := range cores {
		out[i] = New(lb[i], m, ub[i])
	}
	return out
}
