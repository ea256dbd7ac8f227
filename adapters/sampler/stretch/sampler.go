// Package stretch implements a parallel-tempered affine-invariant
// ensemble sampler behind the ports.EnsembleSampler boundary. Each
// temperature rung runs stretch-move updates over its walker ensemble;
// neighbouring rungs exchange states so hot chains can ferry walkers
// out of local modes.
package stretch

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"golang.org/x/sync/semaphore"

	"gotemper/adapters/stats/acf"
	"gotemper/domain/mcmc"
	"gotemper/internal/errors"
	"gotemper/ports"
)

// Options configure the transition kernel. The zero value is usable.
type Options struct {
	// StretchScale is the stretch-move scale parameter a. Default 2.
	StretchScale float64

	// SwapEvery attempts temperature swaps every k-th iteration.
	// Default 1 (every iteration).
	SwapEvery int

	// Pool bounds the number of concurrent log-likelihood evaluations.
	// Zero means serial evaluation.
	Pool int

	// Vectorized routes proposals through BatchLogProb in one call per
	// half-ensemble instead of one call per walker.
	Vectorized bool

	// BatchLogProb is the batched likelihood, required when Vectorized
	// is set.
	BatchLogProb mcmc.BatchLogProbFunc
}

// Sampler advances an ensemble of walkers across a geometric ladder of
// inverse temperatures. All mutation happens through Sample; diagnostics
// are read-only.
type Sampler struct {
	ntemps   int
	nwalkers int
	ndim     int
	logl     mcmc.LogProbFunc
	prior    *mcmc.BoundedPrior
	opts     Options
	betas    []float64
	rng      *rand.Rand
	sem      *semaphore.Weighted

	state mcmc.Ensemble
	logL  [][]float64
	logP  [][]float64

	time     int
	history  *mcmc.History
	accepted [][]int
}

// New constructs a sampler bound to a log-likelihood and a box prior.
// The walker count must be even and at least twice the dimensionality
// (the stretch move needs a complementary half-ensemble that spans the
// parameter space).
func New(nwalkers, ndim int, logLikelihood mcmc.LogProbFunc, prior *mcmc.BoundedPrior, ntemps int, rng *rand.Rand, opts Options) (*Sampler, error) {
	if ndim < 1 {
		return nil, errors.InvalidInput("ndim must be at least 1")
	}
	if ntemps < 1 {
		return nil, errors.InvalidInput("ntemps must be at least 1")
	}
	if nwalkers < 2*ndim || nwalkers < 4 || nwalkers%2 != 0 {
		return nil, errors.InvalidInput("nwalkers must be an even number, at least 4 and at least twice ndim")
	}
	if opts.Vectorized && opts.BatchLogProb == nil {
		return nil, errors.InvalidInput("vectorized sampling requires a batch log-probability function")
	}
	if opts.StretchScale == 0 {
		opts.StretchScale = 2
	}
	if opts.StretchScale <= 1 {
		return nil, errors.InvalidInput("stretch scale must be greater than 1")
	}
	if opts.SwapEvery < 1 {
		opts.SwapEvery = 1
	}

	s := &Sampler{
		ntemps:   ntemps,
		nwalkers: nwalkers,
		ndim:     ndim,
		logl:     logLikelihood,
		prior:    prior,
		opts:     opts,
		betas:    ladder(ntemps),
		rng:      rng,
	}
	if opts.Pool > 0 {
		s.sem = semaphore.NewWeighted(int64(opts.Pool))
	}
	s.Reset()
	return s, nil
}

// ladder returns the inverse-temperature sequence 1, 1/sqrt(2), 1/2, ...
// Rung 0 samples the untempered posterior.
func ladder(ntemps int) []float64 {
	betas := make([]float64, ntemps)
	betas[0] = 1
	for t := 1; t < ntemps; t++ {
		betas[t] = betas[t-1] / math.Sqrt2
	}
	return betas
}

// Sample implements ports.EnsembleSampler.
func (s *Sampler) Sample(ctx context.Context, start mcmc.Ensemble, iterations int, retainHistory bool, onStep func()) (mcmc.Ensemble, error) {
	if start.Ntemps() != s.ntemps || start.Nwalkers() != s.nwalkers || start.Ndim() != s.ndim {
		return nil, errors.InvalidInput("ensemble shape does not match sampler construction")
	}
	if err := s.adopt(ctx, start); err != nil {
		return nil, err
	}

	for it := 0; it < iterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.SamplerError("sampling interrupted", err)
		}
		for t := 0; t < s.ntemps; t++ {
			half := s.nwalkers / 2
			if err := s.updateHalf(ctx, t, 0, half); err != nil {
				return nil, err
			}
			if err := s.updateHalf(ctx, t, half, s.nwalkers); err != nil {
				return nil, err
			}
		}
		if (s.time+1)%s.opts.SwapEvery == 0 {
			s.swap()
		}
		if retainHistory {
			s.history.Append(s.state)
		}
		s.time++
		if onStep != nil {
			onStep()
		}
	}
	return s.state, nil
}

// adopt installs start as the current ensemble, re-evaluating cached
// densities unless it is the sampler's own state handed back to us.
func (s *Sampler) adopt(ctx context.Context, start mcmc.Ensemble) error {
	if s.logL != nil && sameEnsemble(start, s.state) {
		return nil
	}
	s.state = start.Clone()
	s.logL = make([][]float64, s.ntemps)
	s.logP = make([][]float64, s.ntemps)
	for t := 0; t < s.ntemps; t++ {
		s.logP[t] = s.prior.LogDensityBatch(s.state[t])
		inBox := make([]bool, s.nwalkers)
		for w, lp := range s.logP[t] {
			inBox[w] = !math.IsInf(lp, -1)
		}
		logl, err := s.evaluateProposals(ctx, s.state[t], inBox)
		if err != nil {
			return err
		}
		s.logL[t] = logl
	}
	return nil
}

func sameEnsemble(a, b mcmc.Ensemble) bool {
	if len(a) != len(b) || len(a) == 0 {
		return len(a) == len(b)
	}
	return &a[0] == &b[0]
}

// updateHalf proposes stretch moves for walkers [from, to) of rung t
// using the complementary half of the ensemble.
func (s *Sampler) updateHalf(ctx context.Context, t, from, to int) error {
	n := to - from
	a := s.opts.StretchScale
	proposals := make([][]float64, n)
	zs := make([]float64, n)
	priorOK := make([]bool, n)

	compFrom, compTo := 0, from
	if from == 0 {
		compFrom, compTo = to, s.nwalkers
	}

	for i := 0; i < n; i++ {
		k := from + i
		j := compFrom + s.rng.Intn(compTo-compFrom)
		u := s.rng.Float64()
		z := (a-1)*u + 1
		z = z * z / a
		zs[i] = z

		y := make([]float64, s.ndim)
		xk := s.state[t][k]
		xj := s.state[t][j]
		for d := 0; d < s.ndim; d++ {
			y[d] = xj[d] + z*(xk[d]-xj[d])
		}
		proposals[i] = y
		priorOK[i] = !math.IsInf(s.prior.LogDensity(y), -1)
	}

	logl, err := s.evaluateProposals(ctx, proposals, priorOK)
	if err != nil {
		return err
	}

	beta := s.betas[t]
	for i := 0; i < n; i++ {
		if !priorOK[i] {
			continue
		}
		k := from + i
		logr := float64(s.ndim-1)*math.Log(zs[i]) +
			beta*(logl[i]-s.logL[t][k]) - s.logP[t][k]
		if logr >= 0 || math.Log(s.rng.Float64()) < logr {
			s.state[t][k] = proposals[i]
			s.logL[t][k] = logl[i]
			s.logP[t][k] = 0
			s.accepted[t][k]++
		}
	}
	return nil
}

// evaluateProposals computes the log-likelihood of each proposal whose
// prior is finite; rejected rows stay at -Inf and are never evaluated,
// which is what makes the hard boundary cheap.
func (s *Sampler) evaluateProposals(ctx context.Context, proposals [][]float64, priorOK []bool) ([]float64, error) {
	out := make([]float64, len(proposals))
	for i := range out {
		out[i] = math.Inf(-1)
	}

	if s.opts.Vectorized {
		batch := make([][]float64, 0, len(proposals))
		idx := make([]int, 0, len(proposals))
		for i, p := range proposals {
			if priorOK[i] {
				batch = append(batch, p)
				idx = append(idx, i)
			}
		}
		if len(batch) > 0 {
			vals := s.opts.BatchLogProb(batch)
			for i, v := range vals {
				out[idx[i]] = v
			}
		}
		return out, nil
	}

	if s.sem == nil {
		for i, p := range proposals {
			if priorOK[i] {
				out[i] = s.logl(p)
			}
		}
		return out, nil
	}

	var wg sync.WaitGroup
	for i, p := range proposals {
		if !priorOK[i] {
			continue
		}
		if err := s.sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, errors.SamplerError("likelihood pool interrupted", err)
		}
		wg.Add(1)
		go func(i int, p []float64) {
			defer wg.Done()
			defer s.sem.Release(1)
			out[i] = s.logl(p)
		}(i, p)
	}
	wg.Wait()
	return out, nil
}

// swap attempts nearest-neighbour temperature exchanges from the hottest
// rung downward, so a state can migrate the full ladder in one pass.
func (s *Sampler) swap() {
	for t := s.ntemps - 1; t >= 1; t-- {
		dbeta := s.betas[t-1] - s.betas[t]
		perm := s.rng.Perm(s.nwalkers)
		for k := 0; k < s.nwalkers; k++ {
			j := perm[k]
			logr := dbeta * (s.logL[t][k] - s.logL[t-1][j])
			if logr >= 0 || math.Log(s.rng.Float64()) < logr {
				s.state[t][k], s.state[t-1][j] = s.state[t-1][j], s.state[t][k]
				s.logL[t][k], s.logL[t-1][j] = s.logL[t-1][j], s.logL[t][k]
				s.logP[t][k], s.logP[t-1][j] = s.logP[t-1][j], s.logP[t][k]
			}
		}
	}
}

// Reset implements ports.EnsembleSampler. Walker positions and cached
// densities survive; history and counters do not.
func (s *Sampler) Reset() {
	s.time = 0
	s.history = mcmc.NewHistory(s.ntemps, s.nwalkers)
	s.accepted = make([][]int, s.ntemps)
	for t := range s.accepted {
		s.accepted[t] = make([]int, s.nwalkers)
	}
}

// Time implements ports.EnsembleSampler.
func (s *Sampler) Time() int {
	return s.time
}

// Chain implements ports.EnsembleSampler.
func (s *Sampler) Chain() *mcmc.History {
	return s.history
}

// Betas returns the inverse-temperature ladder, coldest first.
func (s *Sampler) Betas() []float64 {
	return append([]float64(nil), s.betas...)
}

// AcceptanceFractions implements ports.EnsembleSampler.
func (s *Sampler) AcceptanceFractions() [][]float64 {
	out := make([][]float64, s.ntemps)
	for t := range out {
		out[t] = make([]float64, s.nwalkers)
		if s.time == 0 {
			continue
		}
		for w := range out[t] {
			out[t][w] = float64(s.accepted[t][w]) / float64(s.time)
		}
	}
	return out
}

// AutocorrTimes implements ports.EnsembleSampler. Estimates come from
// the walker-averaged autocorrelation of the retained history; entries
// are NaN while the history is too short for a trustworthy estimate.
func (s *Sampler) AutocorrTimes() [][]float64 {
	out := make([][]float64, s.ntemps)
	for t := range out {
		out[t] = make([]float64, s.ndim)
		for d := 0; d < s.ndim; d++ {
			if s.history.Len() == 0 {
				out[t][d] = math.NaN()
				continue
			}
			walkers := make([][]float64, s.nwalkers)
			for w := 0; w < s.nwalkers; w++ {
				walkers[w] = s.history.Series(t, w, d)
			}
			out[t][d] = acf.EnsembleIntegratedTime(walkers)
		}
	}
	return out
}

var _ ports.EnsembleSampler = (*Sampler)(nil)
