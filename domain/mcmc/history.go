package mcmc

// History accumulates ensemble positions over iterations, conceptually
// shaped [temperature][walker][iteration][dimension]. It is reset
// together with the sampler at the end of burn-in; everything before
// that point is never used for inference.
type History struct {
	positions [][][][]float64
}

// NewHistory allocates an empty history for the given ensemble shape.
func NewHistory(ntemps, nwalkers int) *History {
	pos := make([][][][]float64, ntemps)
	for t := range pos {
		pos[t] = make([][][]float64, nwalkers)
	}
	return &History{positions: pos}
}

// Append records a snapshot of the ensemble as one more iteration.
func (h *History) Append(e Ensemble) {
	for t := range h.positions {
		for w := range h.positions[t] {
			h.positions[t][w] = append(h.positions[t][w], append([]float64(nil), e[t][w]...))
		}
	}
}

// Len returns the number of retained iterations.
func (h *History) Len() int {
	if len(h.positions) == 0 || len(h.positions[0]) == 0 {
		return 0
	}
	return len(h.positions[0][0])
}

// Series extracts the trajectory of one coordinate of one walker at one
// temperature, in iteration order.
func (h *History) Series(temp, walker, dim int) []float64 {
	iters := h.positions[temp][walker]
	out := make([]float64, len(iters))
	for i, x := range iters {
		out[i] = x[dim]
	}
	return out
}

// Walker returns the full per-iteration positions of one walker.
func (h *History) Walker(temp, walker int) [][]float64 {
	return h.positions[temp][walker]
}

// ThinFlatten keeps every k-th iteration of the given temperature rung
// (starting at iteration 0) and flattens across walkers and iterations
// into a two-dimensional chain with ndim columns.
func (h *History) ThinFlatten(temp, every int) [][]float64 {
	if every < 1 {
		every = 1
	}
	walkers := h.positions[temp]
	n := h.Len()
	kept := (n + every - 1) / every
	out := make([][]float64, 0, kept*len(walkers))
	for _, w := range walkers {
		for i := 0; i < n; i += every {
			out = append(out, append([]float64(nil), w[i]...))
		}
	}
	return out
}
