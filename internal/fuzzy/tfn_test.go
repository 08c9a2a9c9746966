package fuzzy

import (
	"math"
	"testing"
)

func TestBuild(t *testing.T) {
	lb := []float64{0, 0.1}
	ub := []float64{1, 0.9}

	t.Run("cores inside bounds", func(t *testing.T) {
		got := Build(lb, []float64{0.5, 0.5}, ub)
		if len(got) != 2 {
			t.Fatalf("expected 2 fuzzy numbers, got %d", len(got))
		}
		want := []TFN{{0, 0.5, 1}, {0.1, 0.5, 0.9}}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("index %d: got %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("core outside bounds is kept", func(t *testing.T) {
		got := Build(lb, []float64{1.5, -0.2}, ub)
		if got[0].M != 1.5 || got[1].M != -0.2 {
			t.Errorf("cores were altered: %v", got)
		}
		if got[0].Valid() || got[1].Valid() {
			t.Error("expected out-of-bounds cores to report invalid ordering")
		}
	})

	t.Run("empty", func(t *testing.T) {
		if got := Build(nil, nil, nil); len(got) != 0 {
			t.Errorf("expected empty result, got %v", got)
		}
	})
}

func TestMembership(t *testing.T) {
	tfn := New(0, 0.5, 1)
	tests := []struct {
		x    float64
		want float64
	}{
		{-0.1, 0},
		{0, 0},
		{0.25, 0.5},
		{0.5, 1},
		{0.75, 0.5},
		{1, 0},
		{1.2, 0},
	}
	for _, tt := range tests {
		if got := tfn.Membership(tt.x); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Membership(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}

	crisp := New(0.3, 0.3, 0.3)
	if crisp.Membership(0.3) != 1 {
		t.Error("expected crisp number to have membership 1 at its core")
	}
	if crisp.Membership(0.31) != 0 {
		t.Error("expected crisp number to have membership 0 off its core")
	}
}

func TestCentroid(t *testing.T) {
	if got := New(0, 0.5, 1).Centroid(); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("expected centroid 0.5, got %v", got)
	}
	if got := New(0, 0, 0.9).Centroid(); math.Abs(got-0.3) > 1e-12 {
		t.Errorf("expected centroid 0.3, got %v", got)
	}
}
