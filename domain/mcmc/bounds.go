package mcmc

import "math"

// Bounds describes the hyper-rectangular support of the posterior: one
// lower and one upper limit per dimension. Limits may be -Inf or +Inf for
// half-infinite or infinite domains.
type Bounds struct {
	Lo []float64
	Hi []float64
}

// NewBounds pairs the given limit slices. Length agreement is the
// caller's responsibility and is validated by the controller, not here.
func NewBounds(lo, hi []float64) Bounds {
	return Bounds{Lo: lo, Hi: hi}
}

// Ndim returns the dimensionality of the parameter space.
func (b Bounds) Ndim() int {
	return len(b.Lo)
}

// Finite reports whether every limit is a finite number. Uniform box
// initialization is only defined for finite bounds.
func (b Bounds) Finite() bool {
	for i := range b.Lo {
		if math.IsInf(b.Lo[i], 0) || math.IsNaN(b.Lo[i]) {
			return false
		}
	}
	for i := range b.Hi {
		if math.IsInf(b.Hi[i], 0) || math.IsNaN(b.Hi[i]) {
			return false
		}
	}
	return true
}

// Contains reports whether x lies inside the box, both limits inclusive.
// The comparisons are phrased so that a NaN coordinate is never inside.
func (b Bounds) Contains(x []float64) bool {
	for i, v := range x {
		if !(v >= b.Lo[i] && v <= b.Hi[i]) {
			return false
		}
	}
	return true
}
