package mcmc

import "math"

// LogProbFunc evaluates the log-density of a single parameter vector.
type LogProbFunc func(x []float64) float64

// BatchLogProbFunc evaluates the log-density of a batch of parameter
// vectors, one result per row. Used when the likelihood is vectorized.
type BatchLogProbFunc func(xs [][]float64) []float64

// BoundedPrior is a hard box constraint: log-density zero inside the
// bounds, negative infinity outside. It carries no normalization and no
// state, so evaluation is pure and idempotent.
type BoundedPrior struct {
	bounds Bounds
}

// NewBoundedPrior builds a box prior over the given bounds.
func NewBoundedPrior(bounds Bounds) *BoundedPrior {
	return &BoundedPrior{bounds: bounds}
}

// Bounds returns the box the prior is defined over.
func (p *BoundedPrior) Bounds() Bounds {
	return p.bounds
}

// LogDensity returns 0 when x satisfies lo_i <= x_i <= hi_i for every
// coordinate, -Inf otherwise.
func (p *BoundedPrior) LogDensity(x []float64) float64 {
	if p.bounds.Contains(x) {
		return 0
	}
	return math.Inf(-1)
}

// LogDensityBatch evaluates the prior row-wise over a batch, collapsing
// only the trailing parameter axis.
func (p *BoundedPrior) LogDensityBatch(xs [][]float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = p.LogDensity(x)
	}
	return out
}
