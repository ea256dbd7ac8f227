package main

import (
	"fmt"
	"math/rand"
	"net/http"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"gotemper/adapters/api"
	"gotemper/adapters/excel"
	"gotemper/adapters/postgres"
	"gotemper/adapters/progress"
	"gotemper/adapters/rng"
	"gotemper/adapters/sampler/stretch"
	"gotemper/app"
	"gotemper/domain/mcmc"
	"gotemper/internal"
	"gotemper/internal/config"
	"gotemper/internal/testkit"
	"gotemper/ports"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "gotemper",
		Short: "Adaptive parallel-tempered MCMC sampling with automated convergence",
	}

	rootCmd.AddCommand(newDemoCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newDemoCmd() *cobra.Command {
	var (
		target   string
		ndim     int
		nindep   int
		ntemps   int
		nwalkers int
		nburnin  int
		maxIter  int
		seed     int64
		pool     int
		export   string
		save     bool
		serve    string
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Sample a built-in target density to convergence",
		Long: `Sample one of the built-in target densities (uniform, gaussian,
rosenbrock) on the unit box, with live progress, and print a summary of
the thinned posterior chain.

Example: gotemper demo --target gaussian --ndim 2 --nindep 100 --seed 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts := app.DefaultOptions()
			opts.NIndep = pick(nindep, cfg.Sampler.NIndep)
			opts.NTemps = pick(ntemps, cfg.Sampler.NTemps)
			opts.NWalkers = pick(nwalkers, cfg.Sampler.NWalkers)
			opts.NBurnin = pickAllowZero(cmd, "nburnin", nburnin, cfg.Sampler.NBurnin)
			opts.MaxIterations = pick(maxIter, cfg.Sampler.MaxIter)
			opts.Seed = seed
			if opts.Seed == 0 {
				opts.Seed = cfg.Sampler.Seed
			}
			opts.Label = target

			logProb, lo, hi, err := resolveTarget(target, ndim)
			if err != nil {
				return err
			}

			factory := func(nwalkers, ndim int, logl mcmc.LogProbFunc, prior *mcmc.BoundedPrior, ntemps int, kernelRNG *rand.Rand) (ports.EnsembleSampler, error) {
				return stretch.New(nwalkers, ndim, logl, prior, ntemps, kernelRNG, stretch.Options{
					Pool: pick(pool, cfg.Sampler.Pool),
				})
			}

			if serve == "" && cfg.API.Enabled {
				serve = cfg.API.Addr
			}
			if export == "" {
				export = cfg.Storage.ExportPath
			}

			var reporter ports.ProgressReporter = progress.NewTerminal(os.Stderr)
			registry := api.NewRegistry()
			var tracker *api.RunTracker
			if serve != "" {
				tracker = registry.Register(target, target)
				reporter = fanout{reporter, tracker}
				go func() {
					internal.DefaultLogger.Info("status API listening on %s", serve)
					if err := http.ListenAndServe(serve, api.NewRouter(registry)); err != nil {
						internal.DefaultLogger.Error("status API stopped: %v", err)
					}
				}()
			}

			controller := app.NewController(factory, rng.NewSeededSource(), reporter)
			run, err := controller.Run(cmd.Context(), logProb, lo, hi, opts)
			if err != nil {
				return err
			}
			if tracker != nil {
				tracker.SetResult(run)
			}

			fmt.Printf("run %s: %d samples x %d dims (acl=%d, accept=%.3f, iterations=%d)\n",
				run.ID, run.Rows(), run.Ndim, run.ACL, run.AcceptMean, run.Iterations)
			for d, m := range testkit.ColumnMeans(run.Samples) {
				fmt.Printf("  param_%d mean=%.4f\n", d, m)
			}

			if export != "" {
				if err := excel.WriteWorkbook(export, run); err != nil {
					return err
				}
				fmt.Printf("exported chain to %s\n", export)
			}
			if save {
				if cfg.Storage.DatabaseURL == "" {
					return fmt.Errorf("--save requires DATABASE_URL")
				}
				db, err := sqlx.ConnectContext(cmd.Context(), "postgres", cfg.Storage.DatabaseURL)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := postgres.EnsureSchema(cmd.Context(), db); err != nil {
					return err
				}
				if err := postgres.NewChainRepository(db).SaveRun(cmd.Context(), run); err != nil {
					return err
				}
				fmt.Printf("saved run %s\n", run.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "gaussian", "target density: uniform, gaussian or rosenbrock")
	cmd.Flags().IntVar(&ndim, "ndim", 2, "number of parameter dimensions")
	cmd.Flags().IntVar(&nindep, "nindep", 0, "independent samples per walker required to stop")
	cmd.Flags().IntVar(&ntemps, "ntemps", 0, "number of temperature rungs")
	cmd.Flags().IntVar(&nwalkers, "nwalkers", 0, "walkers per rung (default 4*ndim)")
	cmd.Flags().IntVar(&nburnin, "nburnin", 0, "burn-in iterations to discard")
	cmd.Flags().IntVar(&maxIter, "max-iterations", 0, "post-burn-in iteration ceiling (0 = unlimited)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = from clock)")
	cmd.Flags().IntVar(&pool, "pool", 0, "max concurrent likelihood evaluations (0 = serial)")
	cmd.Flags().StringVar(&export, "export", "", "write the chain to this .xlsx path")
	cmd.Flags().BoolVar(&save, "save", false, "persist the run to DATABASE_URL")
	cmd.Flags().StringVar(&serve, "serve", "", "expose the status API on this address while running")

	return cmd
}

// resolveTarget maps a name to a log-density and its bounding box on
// the unit interval per dimension (rosenbrock uses a wider box so the
// banana fits).
func resolveTarget(name string, ndim int) (mcmc.LogProbFunc, []float64, []float64, error) {
	if ndim < 1 {
		return nil, nil, nil, fmt.Errorf("ndim must be at least 1")
	}
	lo := make([]float64, ndim)
	hi := make([]float64, ndim)
	switch name {
	case "uniform":
		for d := range hi {
			hi[d] = 1
		}
		return testkit.UniformTarget(), lo, hi, nil
	case "gaussian":
		for d := range hi {
			hi[d] = 1
		}
		return testkit.GaussianTarget(0.5, 0.1), lo, hi, nil
	case "rosenbrock":
		for d := range lo {
			lo[d] = -5
			hi[d] = 5
		}
		return testkit.RosenbrockTarget(), lo, hi, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown target %q", name)
	}
}

// pick prefers an explicitly set flag value over the config default.
func pick(flag, fallback int) int {
	if flag != 0 {
		return flag
	}
	return fallback
}

// pickAllowZero treats zero as meaningful when the flag was passed
// explicitly (a zero burn-in is a valid choice).
func pickAllowZero(cmd *cobra.Command, name string, flag, fallback int) int {
	if cmd.Flags().Changed(name) {
		return flag
	}
	return fallback
}

// fanout duplicates progress events to several reporters.
type fanout []ports.ProgressReporter

func (f fanout) SetTotal(total int) {
	for _, r := range f {
		r.SetTotal(total)
	}
}

func (f fanout) SetPhase(phase string) {
	for _, r := range f {
		r.SetPhase(phase)
	}
}

func (f fanout) Step() {
	for _, r := range f {
		r.Step()
	}
}

func (f fanout) Annotate(fields map[string]float64) {
	for _, r := range f {
		r.Annotate(fields)
	}
}

func (f fanout) Finish() {
	for _, r := range f {
		r.Finish()
	}
}
