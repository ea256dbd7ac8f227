package app

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"gotemper/domain/mcmc"
	"gotemper/internal"
	"gotemper/internal/errors"
	"gotemper/ports"
)

// initialRoundSize is the length of the first adaptive sampling round.
// Rounds double from here, so the autocorrelation estimate is refreshed
// at geometrically spaced points and its amortized cost per sample
// stays constant.
const initialRoundSize = 64

// Initializer draws a starting ensemble. The default draws uniformly
// from the bounding box and therefore requires finite bounds; callers
// with half-infinite domains supply their own.
type Initializer func(rng *rand.Rand, bounds mcmc.Bounds, ntemps, nwalkers int) mcmc.Ensemble

// Options configure a sampling run.
type Options struct {
	// NIndep is the minimum number of independent posterior samples per
	// walker required before stopping. Must be positive.
	NIndep int

	// NTemps is the number of temperature rungs. Must be positive.
	NTemps int

	// NWalkers is the ensemble size per rung; zero means 4 * ndim.
	NWalkers int

	// NBurnin is the number of iterations discarded before monitoring
	// begins. Must be non-negative; zero skips burn-in entirely.
	NBurnin int

	// MaxIterations caps post-burn-in iterations; zero means unlimited.
	// Exceeding it ends the run with a NOT_CONVERGED error instead of
	// sampling forever.
	MaxIterations int

	// Seed fixes all random streams of the run; zero draws a seed from
	// the clock.
	Seed int64

	// Label names the run in logs, reports and storage.
	Label string

	// Initializer overrides the uniform-box starting draw.
	Initializer Initializer
}

// DefaultOptions returns the documented defaults: 200 independent
// samples, 10 temperatures, 500 burn-in iterations.
func DefaultOptions() Options {
	return Options{
		NIndep:  200,
		NTemps:  10,
		NBurnin: 500,
	}
}

// Controller drives an ensemble sampler to convergence: burn-in,
// geometrically paced autocorrelation checks, a stopping rule in units
// of independent samples, and final thinning of the cold chain.
type Controller struct {
	newSampler ports.SamplerFactory
	random     ports.RandomPort
	progress   ports.ProgressReporter
	log        *internal.Logger
}

// NewController wires a controller to its collaborators. The progress
// reporter may be nil, in which case progress is discarded.
func NewController(factory ports.SamplerFactory, random ports.RandomPort, progress ports.ProgressReporter) *Controller {
	if progress == nil {
		progress = nopProgress{}
	}
	return &Controller{
		newSampler: factory,
		random:     random,
		progress:   progress,
		log:        internal.DefaultLogger,
	}
}

// Run samples the posterior defined by logProb restricted to the box
// [lo, hi] until the cold chain holds at least opts.NIndep independent
// samples per walker, then returns the thinned, flattened chain. Only
// post-burn-in, post-convergence, thinned samples are ever returned.
func (c *Controller) Run(ctx context.Context, logProb mcmc.LogProbFunc, lo, hi []float64, opts Options) (*mcmc.RunResult, error) {
	if logProb == nil {
		return nil, errors.InvalidInput("log-probability function is required")
	}
	if len(lo) == 0 {
		return nil, errors.InvalidInput("at least one parameter dimension is required")
	}
	if len(lo) != len(hi) {
		return nil, errors.InvalidInput("lo and hi must have the same length")
	}
	if opts.NIndep <= 0 {
		return nil, errors.InvalidInput("nindep must be a positive integer")
	}
	if opts.NTemps <= 0 {
		return nil, errors.InvalidInput("ntemps must be a positive integer")
	}
	if opts.NBurnin < 0 {
		return nil, errors.InvalidInput("nburnin must be non-negative")
	}

	ndim := len(lo)
	nwalkers := opts.NWalkers
	if nwalkers == 0 {
		nwalkers = 4 * ndim
	}
	bounds := mcmc.NewBounds(lo, hi)
	init := opts.Initializer
	if init == nil {
		if !bounds.Finite() {
			return nil, errors.InvalidInput("uniform initialization requires finite bounds; supply an Initializer for unbounded domains")
		}
		init = uniformInitializer
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	initRNG, err := c.random.SeededStream(ctx, "init", seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create initialization stream")
	}
	kernelRNG, err := c.random.SeededStream(ctx, "kernel", seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create kernel stream")
	}

	runID := uuid.New()
	log := c.log.WithRun(runID.String()[:8])
	log.Info("starting run: ndim=%d nwalkers=%d ntemps=%d nindep=%d nburnin=%d",
		ndim, nwalkers, opts.NTemps, opts.NIndep, opts.NBurnin)

	prior := mcmc.NewBoundedPrior(bounds)
	sampler, err := c.newSampler(nwalkers, ndim, logProb, prior, opts.NTemps, kernelRNG)
	if err != nil {
		return nil, errors.Wrap(err, "failed to construct sampler")
	}

	pos := init(initRNG, bounds, opts.NTemps, nwalkers)

	c.progress.SetTotal(opts.NBurnin + opts.NIndep*initialRoundSize)
	c.progress.SetPhase("Burning in")
	pos, err = sampler.Sample(ctx, pos, opts.NBurnin, false, c.progress.Step)
	if err != nil {
		return nil, err
	}

	// History accumulated during burn-in is never used for inference.
	sampler.Reset()

	nsteps := initialRoundSize
	acl := 0
	aclKnown := false
	acceptMean := 0.0
	notConverged := false

	for !aclKnown || sampler.Time() < opts.NIndep*acl {
		if opts.MaxIterations > 0 && sampler.Time() >= opts.MaxIterations {
			notConverged = true
			break
		}
		if opts.MaxIterations > 0 && sampler.Time()+nsteps > opts.MaxIterations {
			nsteps = opts.MaxIterations - sampler.Time()
		}

		// Revise the total estimate. While the autocorrelation length is
		// unknown it counts as 1; NaN would poison the comparison.
		planned := opts.NIndep
		if aclKnown {
			planned = opts.NIndep * acl
		}
		c.progress.SetTotal(opts.NBurnin + maxInt(sampler.Time()+nsteps, planned))

		c.progress.SetPhase("Sampling")
		pos, err = sampler.Sample(ctx, pos, nsteps, true, c.progress.Step)
		if err != nil {
			return nil, err
		}

		c.progress.SetPhase("Checking")
		tau := coldMax(sampler.AutocorrTimes())
		if math.IsNaN(tau) || math.IsInf(tau, 0) {
			aclKnown = false
		} else {
			aclKnown = true
			acl = int(math.Ceil(tau))
			if acl < 1 {
				acl = 1
			}
		}
		acceptMean, _ = stats.Mean(stats.Float64Data(sampler.AcceptanceFractions()[0]))

		annotated := math.NaN()
		if aclKnown {
			annotated = float64(acl)
		}
		c.progress.Annotate(map[string]float64{"acl": annotated, "accept": acceptMean})
		log.Debug("check: time=%d tau=%.2f accept=%.3f nsteps=%d", sampler.Time(), tau, acceptMean, nsteps)

		nsteps *= 2
	}
	c.progress.Finish()

	if notConverged && !aclKnown {
		return nil, errors.NotConverged("iteration budget exhausted before the autocorrelation length could be estimated")
	}

	result := &mcmc.RunResult{
		ID:         runID,
		Label:      opts.Label,
		Ndim:       ndim,
		Nwalkers:   nwalkers,
		Ntemps:     opts.NTemps,
		Iterations: sampler.Time(),
		Burnin:     opts.NBurnin,
		ACL:        acl,
		AcceptMean: acceptMean,
		Samples:    sampler.Chain().ThinFlatten(0, acl),
		CreatedAt:  time.Now().UTC(),
	}
	log.Info("finished: iterations=%d acl=%d rows=%d accept=%.3f",
		result.Iterations, result.ACL, result.Rows(), result.AcceptMean)

	if notConverged {
		return result, errors.NotConverged("iteration budget exhausted before reaching the independent-sample target")
	}
	return result, nil
}

// uniformInitializer draws every walker independently and uniformly
// from the bounding box at every temperature.
func uniformInitializer(rng *rand.Rand, bounds mcmc.Bounds, ntemps, nwalkers int) mcmc.Ensemble {
	ndim := bounds.Ndim()
	dists := make([]distuv.Uniform, ndim)
	for d := 0; d < ndim; d++ {
		dists[d] = distuv.Uniform{Min: bounds.Lo[d], Max: bounds.Hi[d], Src: rng}
	}
	e := mcmc.NewEnsemble(ntemps, nwalkers, ndim)
	for t := 0; t < ntemps; t++ {
		for w := 0; w < nwalkers; w++ {
			for d := 0; d < ndim; d++ {
				e[t][w][d] = dists[d].Rand()
			}
		}
	}
	return e
}

// coldMax reduces the autocorrelation estimate to a single number: the
// maximum over dimensions at the coldest temperature.
func coldMax(taus [][]float64) float64 {
	cold := taus[0]
	out := math.Inf(-1)
	for _, v := range cold {
		if math.IsNaN(v) {
			return math.NaN()
		}
		if v > out {
			out = v
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// nopProgress discards all progress events.
type nopProgress struct{}

func (nopProgress) SetTotal(int)                {}
func (nopProgress) SetPhase(string)             {}
func (nopProgress) Step()                       {}
func (nopProgress) Annotate(map[string]float64) {}
func (nopProgress) Finish()                     {}
