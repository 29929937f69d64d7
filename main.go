package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/samuelfneumann/psiracing/agent/random"
	"github.com/samuelfneumann/psiracing/environment"
	"github.com/samuelfneumann/psiracing/environment/box2d/racetrack"
	"github.com/samuelfneumann/psiracing/environment/envconfig"
	"github.com/samuelfneumann/psiracing/environment/gym/carracing"
	"github.com/samuelfneumann/psiracing/environment/psi"
	"github.com/samuelfneumann/psiracing/experiment"
	"github.com/samuelfneumann/psiracing/experiment/report"
	"github.com/samuelfneumann/psiracing/experiment/store"
	"github.com/samuelfneumann/psiracing/experiment/trackers"
	"github.com/samuelfneumann/psiracing/utils/progressbar"
)

// Flags of the eval command
var (
	configPath string
	envKind    string
	episodes   int
	seed       uint64
	mode       string
	normalize  bool
	storeKind  string
	dbPath     string
	scoresOut  string
	grassOut   string
	plotOut    string
	progress   bool
)

func main() {
	for _, envFile := range []string{
		".env",
		"../.env",
	} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	rootCmd := &cobra.Command{
		Use:   "psiracing",
		Short: "Psiracing evaluates driving policies on CarRacing tracks with sampled curvature and obstacle parameters.",
	}

	evalCmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate the random baseline policy on a CarRacing-obstacles environment",
		RunE:  runEval,
	}

	flags := evalCmd.Flags()
	flags.StringVar(&configPath, "config", os.Getenv("PSIRACING_CONFIG"),
		"JSON environment configuration (default configuration if empty)")
	flags.StringVar(&envKind, "env", envString("PSIRACING_ENV", "carracing"),
		"simulator: carracing (Python, requires the python build tag) or box2d")
	flags.IntVar(&episodes, "episodes", envInt("PSIRACING_EPISODES", 10),
		"number of evaluation episodes")
	flags.Uint64Var(&seed, "seed", 0, "seed for parameter sampling and the policy")
	flags.StringVar(&mode, "mode", "",
		"grid sampling mode: curvature_only, probability_only or both")
	flags.BoolVar(&normalize, "normalize", false,
		"normalize environment parameters to [0, 1] in observations")
	flags.StringVar(&storeKind, "store", envString("PSIRACING_STORE", "memory"),
		"run store backend: memory or sqlite")
	flags.StringVar(&dbPath, "db-path", envString("PSIRACING_DB_PATH", "psiracing.db"),
		"sqlite database path")
	flags.StringVar(&scoresOut, "scores-out", "",
		"file to save per-episode scores to")
	flags.StringVar(&grassOut, "grass-out", "",
		"file to save per-episode grass proportions to")
	flags.StringVar(&plotOut, "plot", "", "PNG file to plot scores to")
	flags.BoolVar(&progress, "progress", false, "display a progress bar")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the default environment configuration as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(envconfig.Default(), "", "\t")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	rootCmd.AddCommand(evalCmd, configCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	base, err := newBase(envKind, cfg.Seed)
	if err != nil {
		return fmt.Errorf("failed to create environment: %v", err)
	}

	env, err := cfg.Wrap(base)
	if err != nil {
		base.Close()
		return fmt.Errorf("failed to wrap environment: %v", err)
	}
	defer env.Close()
	log.Printf("Created environment %v", env)

	classifier, err := cfg.Classifier()
	if err != nil {
		return err
	}

	policy, err := random.New(env.ActionSpec(), random.DefaultGas,
		random.DefaultBrake, cfg.Seed)
	if err != nil {
		return fmt.Errorf("failed to create policy: %v", err)
	}

	recorder := &store.Recorder{}
	grass := trackers.NewGrassTime(grassOut)
	opts := []experiment.Option{experiment.WithTrackers(recorder, grass)}

	var scores *trackers.Score
	if scoresOut != "" {
		scores = trackers.NewScore(scoresOut)
		opts = append(opts, experiment.WithTrackers(scores))
	}
	if progress {
		bar := progressbar.NewManualProgressBar(os.Stderr, 50, episodes)
		opts = append(opts, experiment.WithProgress(bar))
	}

	eval, err := experiment.NewEvaluation(env, policy, classifier, opts...)
	if err != nil {
		return err
	}

	agg, err := eval.Run(episodes)
	if err != nil {
		return fmt.Errorf("evaluation failed: %v", err)
	}

	if scores != nil {
		if err := scores.Save(); err != nil {
			return err
		}
	}
	if grassOut != "" {
		if err := grass.Save(); err != nil {
			return err
		}
	}

	if plotOut != "" {
		if err := report.RenderScores(plotOut, agg.Scores,
			grass.Proportions()); err != nil {
			return err
		}
		log.Printf("Saved score plot to %s", plotOut)
	}

	return saveRun(cmd.Context(), cfg, agg, recorder.Episodes())
}

// newBase creates the simulator named by kind
func newBase(kind string, seed uint64) (environment.BaseEnv, error) {
	switch kind {
	case "", "carracing":
		pyConfig := carracing.DefaultConfig()
		pyConfig.Module = envString("PSIRACING_PY_MODULE", pyConfig.Module)
		pyConfig.Class = envString("PSIRACING_PY_CLASS", pyConfig.Class)
		return carracing.New(pyConfig)

	case "box2d":
		r, err := racetrack.New(seed, racetrack.DefaultMaxSteps)
		if err != nil {
			return nil, err
		}
		return r, nil

	default:
		return nil, fmt.Errorf("unsupported environment %q", kind)
	}
}

// loadConfig loads the environment configuration and applies any
// flags that were explicitly set
func loadConfig(cmd *cobra.Command) (envconfig.Config, error) {
	cfg := envconfig.Default()
	if configPath != "" {
		var err error
		if cfg, err = envconfig.Load(configPath); err != nil {
			return envconfig.Config{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("normalize") {
		cfg.Normalize = normalize
	}
	if flags.Changed("mode") {
		m, err := psi.ParseMode(mode)
		if err != nil {
			return envconfig.Config{}, err
		}
		cfg.Sampling = envconfig.Grid
		cfg.Mode = m
	}

	return cfg, cfg.Validate()
}

// persistent returns whether runs saved to the store kind outlive the
// process
func persistent(kind string) bool {
	return kind != "" && kind != "memory"
}

func saveRun(ctx context.Context, cfg envconfig.Config,
	agg experiment.AggregateMetrics, episodes []experiment.EpisodeMetrics) error {
	if !persistent(storeKind) {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := store.NewStore(storeKind, dbPath)
	if err != nil {
		return err
	}
	defer store.CloseIfSupported(s)

	if err := s.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize store: %v", err)
	}

	run, err := store.NewRun(cfg, agg, episodes)
	if err != nil {
		return err
	}
	if err := s.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("failed to save run: %v", err)
	}
	log.Printf("Saved run %s (%s store)", run.ID, storeKind)

	return nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
