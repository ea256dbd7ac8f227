package mcmc

// Ensemble holds the current position of every walker at every
// temperature, indexed [temperature][walker][dimension]. It is owned by
// exactly one run at a time and mutated only by advancing the sampler.
type Ensemble [][][]float64

// NewEnsemble allocates a zeroed ensemble of the given shape.
func NewEnsemble(ntemps, nwalkers, ndim int) Ensemble {
	e := make(Ensemble, ntemps)
	for t := range e {
		e[t] = make([][]float64, nwalkers)
		for w := range e[t] {
			e[t][w] = make([]float64, ndim)
		}
	}
	return e
}

// Clone returns a deep copy, so history snapshots are immune to later
// in-place walker moves.
func (e Ensemble) Clone() Ensemble {
	out := make(Ensemble, len(e))
	for t := range e {
		out[t] = make([][]float64, len(e[t]))
		for w := range e[t] {
			out[t][w] = append([]float64(nil), e[t][w]...)
		}
	}
	return out
}

// Ntemps returns the number of temperature rungs.
func (e Ensemble) Ntemps() int {
	return len(e)
}

// Nwalkers returns the walkers per rung.
func (e Ensemble) Nwalkers() int {
	if len(e) == 0 {
		return 0
	}
	return len(e[0])
}

// Ndim returns the parameter dimensionality.
func (e Ensemble) Ndim() int {
	if len(e) == 0 || len(e[0]) == 0 {
		return 0
	}
	return len(e[0][0])
}
