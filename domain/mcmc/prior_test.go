package mcmc

import (
	"math"
	"testing"
)

func TestBoundedPrior_InsideAndOutside(t *testing.T) {
	prior := NewBoundedPrior(NewBounds([]float64{0, -1}, []float64{1, 1}))

	cases := []struct {
		name   string
		x      []float64
		inside bool
	}{
		{"interior", []float64{0.5, 0}, true},
		{"lower edge", []float64{0, -1}, true},
		{"upper edge", []float64{1, 1}, true},
		{"below", []float64{-0.01, 0}, false},
		{"above", []float64{0.5, 1.01}, false},
	}

	for _, tc := range cases {
		got := prior.LogDensity(tc.x)
		if tc.inside && got != 0 {
			t.Errorf("%s: expected 0, got %v", tc.name, got)
		}
		if !tc.inside && !math.IsInf(got, -1) {
			t.Errorf("%s: expected -Inf, got %v", tc.name, got)
		}
	}
}

func TestBoundedPrior_Idempotent(t *testing.T) {
	prior := NewBoundedPrior(NewBounds([]float64{0}, []float64{1}))
	x := []float64{0.25}
	first := prior.LogDensity(x)
	for i := 0; i < 10; i++ {
		if got := prior.LogDensity(x); got != first {
			t.Fatalf("evaluation %d changed: %v != %v", i, got, first)
		}
	}
}

func TestBoundedPrior_Batch(t *testing.T) {
	prior := NewBoundedPrior(NewBounds([]float64{0, 0}, []float64{1, 1}))
	batch := [][]float64{
		{0.5, 0.5},
		{1.5, 0.5},
		{0.5, -0.5},
		{1, 0},
	}
	got := prior.LogDensityBatch(batch)
	if len(got) != len(batch) {
		t.Fatalf("expected %d results, got %d", len(batch), len(got))
	}
	if got[0] != 0 || got[3] != 0 {
		t.Errorf("rows inside the box must score 0: %v", got)
	}
	if !math.IsInf(got[1], -1) || !math.IsInf(got[2], -1) {
		t.Errorf("rows outside the box must score -Inf: %v", got)
	}
}

func TestBoundedPrior_HalfInfiniteBounds(t *testing.T) {
	prior := NewBoundedPrior(NewBounds([]float64{0}, []float64{math.Inf(1)}))
	if got := prior.LogDensity([]float64{1e12}); got != 0 {
		t.Errorf("expected 0 for point in half-infinite box, got %v", got)
	}
	if got := prior.LogDensity([]float64{-1}); !math.IsInf(got, -1) {
		t.Errorf("expected -Inf below the lower bound, got %v", got)
	}
}

func TestBounds_Finite(t *testing.T) {
	if !NewBounds([]float64{0}, []float64{1}).Finite() {
		t.Error("finite box misreported")
	}
	if NewBounds([]float64{math.Inf(-1)}, []float64{1}).Finite() {
		t.Error("infinite lower bound misreported as finite")
	}
}

func TestBoundedPrior_NaNIsOutside(t *testing.T) {
	prior := NewBoundedPrior(NewBounds([]float64{0, 0}, []float64{1, 1}))
	if got := prior.LogDensity([]float64{math.NaN(), 0.5}); !math.IsInf(got, -1) {
		t.Errorf("NaN coordinate must score -Inf, got %v", got)
	}
	if NewBounds([]float64{0}, []float64{1}).Contains([]float64{math.NaN()}) {
		t.Error("NaN coordinate must not be inside the box")
	}
}

func TestBounds_DegenerateDimension(t *testing.T) {
	b := NewBounds([]float64{0.5}, []float64{0.5})
	if !b.Contains([]float64{0.5}) {
		t.Error("the single point of a degenerate box must be inside")
	}
	if b.Contains([]float64{0.5000001}) {
		t.Error("any other point must be outside")
	}
}
