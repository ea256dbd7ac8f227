package ports

import (
	"context"
	"math/rand"

	"gotemper/domain/mcmc"
)

// EnsembleSampler is the capability boundary to the parallel-tempered
// MCMC kernel. The convergence controller drives any compliant
// implementation through this interface and never assumes a concrete
// transition kernel or swap schedule.
type EnsembleSampler interface {
	// Sample advances the ensemble from start by the given number of
	// iterations, invoking onStep once per completed iteration. When
	// retainHistory is set, every iteration is appended to the chain
	// history. The returned ensemble is the post-round state.
	Sample(ctx context.Context, start mcmc.Ensemble, iterations int, retainHistory bool, onStep func()) (mcmc.Ensemble, error)

	// Reset clears the accumulated chain history, the iteration clock
	// and the acceptance counters without touching walker positions.
	Reset()

	// Time returns the number of iterations taken since the last Reset.
	Time() int

	// Chain returns the retained history (temperature x walker x
	// iteration x dimension).
	Chain() *mcmc.History

	// AcceptanceFractions returns the per-temperature, per-walker
	// fraction of accepted moves since the last Reset.
	AcceptanceFractions() [][]float64

	// AutocorrTimes estimates the autocorrelation time per temperature
	// and per dimension from the retained history. Entries are NaN when
	// the chain is too short for a trustworthy estimate.
	AutocorrTimes() [][]float64
}

// SamplerFactory constructs an ensemble sampler bound to a
// log-likelihood and a log-prior. It mirrors the construction contract
// of the kernel: shape, callables, temperature count and a random
// source; everything else is implementation configuration closed over
// by the factory.
type SamplerFactory func(nwalkers, ndim int, logLikelihood mcmc.LogProbFunc, prior *mcmc.BoundedPrior, ntemps int, rng *rand.Rand) (EnsembleSampler, error)
