package app

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotemper/adapters/rng"
	"gotemper/adapters/sampler/stretch"
	"gotemper/domain/mcmc"
	"gotemper/internal/errors"
	"gotemper/internal/testkit"
	"gotemper/ports"
)

func stretchFactory(opts stretch.Options) ports.SamplerFactory {
	return func(nwalkers, ndim int, logl mcmc.LogProbFunc, prior *mcmc.BoundedPrior, ntemps int, kernelRNG *rand.Rand) (ports.EnsembleSampler, error) {
		return stretch.New(nwalkers, ndim, logl, prior, ntemps, kernelRNG, opts)
	}
}

func newTestController(progress ports.ProgressReporter) *Controller {
	return NewController(stretchFactory(stretch.Options{}), rng.NewSeededSource(), progress)
}

// recordingReporter captures the sequence of phases and the number of
// steps taken in each, so tests can verify round pacing.
type recordingReporter struct {
	mu     sync.Mutex
	phases []string
	steps  []int
	totals []int
}

func (r *recordingReporter) SetTotal(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totals = append(r.totals, total)
}

func (r *recordingReporter) SetPhase(phase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, phase)
	r.steps = append(r.steps, 0)
}

func (r *recordingReporter) Step() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.steps); n > 0 {
		r.steps[n-1]++
	}
}

func (r *recordingReporter) Annotate(map[string]float64) {}
func (r *recordingReporter) Finish()                     {}

func (r *recordingReporter) samplingRounds() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int
	for i, phase := range r.phases {
		if phase == "Sampling" {
			out = append(out, r.steps[i])
		}
	}
	return out
}

func TestRun_ValidatesConfiguration(t *testing.T) {
	c := newTestController(nil)
	ctx := context.Background()
	flat := testkit.UniformTarget()

	cases := []struct {
		name string
		fn   func() (*mcmc.RunResult, error)
	}{
		{"nil log prob", func() (*mcmc.RunResult, error) {
			return c.Run(ctx, nil, []float64{0}, []float64{1}, DefaultOptions())
		}},
		{"empty bounds", func() (*mcmc.RunResult, error) {
			return c.Run(ctx, flat, nil, nil, DefaultOptions())
		}},
		{"mismatched bounds", func() (*mcmc.RunResult, error) {
			return c.Run(ctx, flat, []float64{0, 0}, []float64{1}, DefaultOptions())
		}},
		{"non-positive nindep", func() (*mcmc.RunResult, error) {
			opts := DefaultOptions()
			opts.NIndep = 0
			return c.Run(ctx, flat, []float64{0}, []float64{1}, opts)
		}},
		{"non-positive ntemps", func() (*mcmc.RunResult, error) {
			opts := DefaultOptions()
			opts.NTemps = 0
			return c.Run(ctx, flat, []float64{0}, []float64{1}, opts)
		}},
		{"negative burn-in", func() (*mcmc.RunResult, error) {
			opts := DefaultOptions()
			opts.NBurnin = -1
			return c.Run(ctx, flat, []float64{0}, []float64{1}, opts)
		}},
		{"infinite bounds without initializer", func() (*mcmc.RunResult, error) {
			return c.Run(ctx, flat, []float64{0}, []float64{math.Inf(1)}, DefaultOptions())
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			run, err := tc.fn()
			require.Error(t, err)
			assert.Nil(t, run)
			assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
		})
	}
}

func TestRun_UniformBox(t *testing.T) {
	c := newTestController(nil)
	opts := DefaultOptions()
	opts.NIndep = 50
	opts.NTemps = 2
	opts.NWalkers = 8
	opts.NBurnin = 10
	opts.Seed = testkit.DefaultSeed

	run, err := c.Run(context.Background(), testkit.UniformTarget(), []float64{0, 0}, []float64{1, 1}, opts)
	require.NoError(t, err)

	assert.Equal(t, 2, run.Ndim)
	assert.GreaterOrEqual(t, run.Rows(), 50*8)
	assert.GreaterOrEqual(t, run.ACL, 1)
	for _, row := range run.Samples {
		require.Len(t, row, 2)
		for _, v := range row {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestRun_GaussianMoments(t *testing.T) {
	c := newTestController(nil)
	opts := DefaultOptions()
	opts.NIndep = 100
	opts.NTemps = 2
	opts.NWalkers = 8
	opts.NBurnin = 50
	opts.Seed = testkit.DefaultSeed

	sigma := 0.1
	run, err := c.Run(context.Background(), testkit.GaussianTarget(0.5, sigma), []float64{0}, []float64{1}, opts)
	require.NoError(t, err)

	means := testkit.ColumnMeans(run.Samples)
	variances := testkit.ColumnVariances(run.Samples)
	assert.InDelta(t, 0.5, means[0], 0.05)
	assert.InDelta(t, sigma*sigma, variances[0], sigma*sigma)
}

func TestRun_DegenerateDimension(t *testing.T) {
	c := newTestController(nil)
	opts := DefaultOptions()
	opts.NIndep = 30
	opts.NTemps = 2
	opts.NWalkers = 8
	opts.NBurnin = 10
	opts.Seed = testkit.DefaultSeed

	run, err := c.Run(context.Background(), testkit.UniformTarget(), []float64{0, 0.5}, []float64{1, 0.5}, opts)
	require.NoError(t, err)

	for _, row := range run.Samples {
		assert.Equal(t, 0.5, row[1], "degenerate coordinate must stay pinned")
	}
}

func TestRun_ZeroBurnin(t *testing.T) {
	c := newTestController(nil)
	opts := DefaultOptions()
	opts.NIndep = 20
	opts.NTemps = 2
	opts.NWalkers = 8
	opts.NBurnin = 0
	opts.Seed = testkit.DefaultSeed

	run, err := c.Run(context.Background(), testkit.UniformTarget(), []float64{0}, []float64{1}, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, run.Burnin)
	assert.Greater(t, run.Rows(), 0)
}

func TestRun_RoundsDoubleGeometrically(t *testing.T) {
	rec := &recordingReporter{}
	c := newTestController(rec)
	opts := DefaultOptions()
	opts.NIndep = 150
	opts.NTemps = 2
	opts.NWalkers = 8
	opts.NBurnin = 10
	opts.Seed = testkit.DefaultSeed

	_, err := c.Run(context.Background(), testkit.GaussianTarget(0.5, 0.1), []float64{0}, []float64{1}, opts)
	require.NoError(t, err)

	rounds := rec.samplingRounds()
	require.NotEmpty(t, rounds)
	assert.Equal(t, 64, rounds[0])
	for i := 1; i < len(rounds); i++ {
		assert.Equal(t, 2*rounds[i-1], rounds[i], "round %d must double the previous one", i)
	}
}

func TestRun_MaxIterationsReturnsNotConverged(t *testing.T) {
	c := newTestController(nil)
	opts := DefaultOptions()
	opts.NIndep = 100000
	opts.NTemps = 2
	opts.NWalkers = 8
	opts.NBurnin = 10
	opts.MaxIterations = 640
	opts.Seed = testkit.DefaultSeed

	run, err := c.Run(context.Background(), testkit.UniformTarget(), []float64{0}, []float64{1}, opts)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotConverged, errors.GetCode(err))
	// Enough rounds completed for a reliable estimate, so the partial
	// chain is still handed back.
	require.NotNil(t, run)
	assert.Greater(t, run.Rows(), 0)
	assert.Equal(t, 640, run.Iterations)
}

func TestRun_MaxIterationsIsExact(t *testing.T) {
	rec := &recordingReporter{}
	c := newTestController(rec)
	opts := DefaultOptions()
	opts.NIndep = 100000
	opts.NTemps = 2
	opts.NWalkers = 8
	opts.NBurnin = 10
	opts.MaxIterations = 100
	opts.Seed = testkit.DefaultSeed

	// 100 is not on a round boundary, so the last round must be clamped
	// rather than overshooting to 64+128.
	_, err := c.Run(context.Background(), testkit.UniformTarget(), []float64{0}, []float64{1}, opts)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotConverged, errors.GetCode(err))

	total := 0
	for _, n := range rec.samplingRounds() {
		total += n
	}
	assert.Equal(t, 100, total)
}

func TestRun_CustomInitializerForHalfInfiniteDomain(t *testing.T) {
	c := newTestController(nil)
	opts := DefaultOptions()
	opts.NIndep = 30
	opts.NTemps = 2
	opts.NWalkers = 8
	opts.NBurnin = 20
	opts.Seed = testkit.DefaultSeed
	opts.Initializer = func(r *rand.Rand, bounds mcmc.Bounds, ntemps, nwalkers int) mcmc.Ensemble {
		e := mcmc.NewEnsemble(ntemps, nwalkers, bounds.Ndim())
		for t := range e {
			for w := range e[t] {
				for d := range e[t][w] {
					e[t][w][d] = r.Float64()
				}
			}
		}
		return e
	}

	run, err := c.Run(context.Background(), testkit.GaussianTarget(0.5, 0.1), []float64{0}, []float64{math.Inf(1)}, opts)
	require.NoError(t, err)
	for _, row := range run.Samples {
		assert.GreaterOrEqual(t, row[0], 0.0)
	}
}

func TestRun_SeededRunsAreReproducible(t *testing.T) {
	opts := DefaultOptions()
	opts.NIndep = 25
	opts.NTemps = 2
	opts.NWalkers = 8
	opts.NBurnin = 10
	opts.Seed = testkit.DefaultSeed

	first, err := newTestController(nil).Run(context.Background(), testkit.UniformTarget(), []float64{0}, []float64{1}, opts)
	require.NoError(t, err)
	second, err := newTestController(nil).Run(context.Background(), testkit.UniformTarget(), []float64{0}, []float64{1}, opts)
	require.NoError(t, err)

	require.Equal(t, first.Rows(), second.Rows())
	for i := range first.Samples {
		assert.Equal(t, first.Samples[i], second.Samples[i])
	}
}
