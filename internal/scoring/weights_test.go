package scoring

import (
	"errors"
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Run("already normalised is unchanged", func(t *testing.T) {
		w, err := Normalize([]float64{0.4, 0.6})
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if w[0] != 0.4 || w[1] != 0.6 {
			t.Errorf("expected [0.4 0.6], got %v", w)
		}
	})

	t.Run("rescales to unit sum", func(t *testing.T) {
		raw := []float64{0.5, 0.5, 1}
		w, err := Normalize(raw)
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if math.Abs(Sum(w)-1.0) > 1e-12 {
			t.Errorf("normalised weights sum to %f", Sum(w))
		}
		if raw[2] != 1 {
			t.Error("input was modified")
		}
		if err := Validate(w); err != nil {
			t.Errorf("normalised weights invalid: %v", err)
		}
	})

	t.Run("overflowing sum", func(t *testing.T) {
		w, err := Normalize([]float64{1e308, 1e308})
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if w[0] != 0.5 || w[1] != 0.5 {
			t.Errorf("expected [0.5 0.5], got %v", w)
		}

		w, err = Normalize([]float64{-1e308, -1e308, -1e308})
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if math.Abs(Sum(w)-1.0) > 1e-12 {
			t.Errorf("normalised weights sum to %f", Sum(w))
		}
	})

	t.Run("zero sum", func(t *testing.T) {
		if _, err := Normalize([]float64{0, 0}); !errors.Is(err, ErrZeroSum) {
			t.Errorf("expected ErrZeroSum, got %v", err)
		}
		if _, err := Normalize([]float64{0.5, -0.5}); !errors.Is(err, ErrZeroSum) {
			t.Errorf("expected ErrZeroSum for cancelling weights, got %v", err)
		}
		if _, err := Normalize([]float64{math.NaN(), 1}); !errors.Is(err, ErrZeroSum) {
			t.Errorf("expected ErrZeroSum for NaN weights, got %v", err)
		}
		if _, err := Normalize([]float64{math.Inf(1), 1}); !errors.Is(err, ErrZeroSum) {
			t.Errorf("expected ErrZeroSum for infinite weights, got %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	if err := Validate([]float64{0.3, 0.3}); !errors.Is(err, ErrInvalidWeights) {
		t.Errorf("expected ErrInvalidWeights for weights summing to 0.6, got %v", err)
	}
	if err := Validate([]float64{1.2, -0.2}); !errors.Is(err, ErrInvalidWeights) {
		t.Errorf("expected ErrInvalidWeights for negative weight, got %v", err)
	}
	if err := Validate(nil); !errors.Is(err, ErrInvalidWeights) {
		t.Errorf("expected ErrInvalidWeights for empty weights, got %v", err)
	}
	if err := Validate([]float64{0.25, 0.75}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
