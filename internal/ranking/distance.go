// Package ranking measures how far a candidate ranking is from a reference ranking.
// Every Distance is non-negative, deterministic and zero for identical rankings.
package ranking

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Distance compares a candidate ranking against a reference one. Both slices hold one
// rank per alternative, 1 = best. Lower is better.
type Distance func(rank, target []float64) float64

// ByName returns the distance registered under name.
func ByName(name string) (Distance, error) {
	switch strings.ToLower(name) {
	case "spearman", "":
		return Spearman, nil
	case "rw", "weighted_spearman", "weighted-spearman":
		return WeightedSpearman, nil
	case "ws":
		return WS, nil
	case "ssd", "squared_diff", "squared-diff":
		return SquaredDiff, nil
	default:
		return nil, fmt.Errorf("unknown rank distance %q", name)
	}
}

// Spearman returns 1 - ρ, where ρ is Spearman's rank correlation computed as the Pearson
// correlation of the two rank vectors. The result lies in [0, 2]. A constant ranking has
// no defined correlation and scores 1 unless it equals the target.
func Spearman(rank, target []float64) float64 {
	if floats.Equal(rank, target) {
		return 0
	}
	rho := stat.Correlation(rank, target, nil)
	if math.IsNaN(rho) {
		return 1
	}
	return math.Max(0, 1-rho)
}

// WeightedSpearman returns 1 - r_w. The weighted coefficient penalises disagreements at
// the top of the ranking more than at the bottom.
//
//	r_w = 1 - 6 Σ (x-y)² ((N-x+1) + (N-y+1)) / (N⁴ + N³ - N² - N)
func WeightedSpearman(rank, target []float64) float64 {
	n := float64(len(rank))
	denom := math.Pow(n, 4) + math.Pow(n, 3) - n*n - n
	if denom == 0 {
		return 0
	}
	var num float64
	for i := range rank {
		x, y := rank[i], target[i]
		num += (x - y) * (x - y) * ((n - x + 1) + (n - y + 1))
	}
	return math.Max(0, 6*num/denom)
}

// WS returns 1 - WS, where WS is the rank similarity coefficient that weighs each
// position by 2^-target so the leaders of the reference ranking dominate.
func WS(rank, target []float64) float64 {
	n := float64(len(rank))
	var sum float64
	for i := range rank {
		x, y := target[i], rank[i]
		scale := math.Max(math.Abs(x-1), math.Abs(x-n))
		if scale == 0 {
			continue
		}
		sum += math.Pow(2, -x) * math.Abs(x-y) / scale
	}
	return math.Max(0, sum)
}

// SquaredDiff returns the sum of squared rank differences.
func SquaredDiff(rank, target []float64) float64 {
	var sum float64
	for i := range rank {
		d := rank[i] - target[i]
		sum += d * d
	}
	return sum
}
