// Package envconfig provides configuration structs for configuring
// parameterized racing environments. Configurations in this package
// are JSON serializable.
package envconfig

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/psiracing/environment"
	"github.com/samuelfneumann/psiracing/environment/contact"
	"github.com/samuelfneumann/psiracing/environment/psi"
	"github.com/samuelfneumann/psiracing/environment/wrappers"
)

// SamplingName stores the names of the parameter samplers that can be
// configured with this package
type SamplingName string

// Samplers available for configuration
const (
	// Uniform samples whole rows of Config.Set
	Uniform SamplingName = "uniform"

	// Grid samples Config.Curvatures and Config.Probabilities
	// independently according to Config.Mode
	Grid SamplingName = "grid"
)

// GrassName stores the names of the grass policies that can be
// configured with this package
type GrassName string

// Grass policies available for configuration
const (
	AllWheels GrassName = "all_wheels"
	AnyWheel  GrassName = "any_wheel"
)

// Config implements a specific configuration of a parameterized racing
// environment: how its parameters are sampled, how its observations
// are composed and how its episodes are cut off.
type Config struct {
	Sampling SamplingName
	Mode     psi.Mode

	// Domain of the environment parameters used for normalization
	CurvatureMin, CurvatureMax     float64
	ProbabilityMin, ProbabilityMax float64

	// Rows of [K, p] used by the uniform sampler
	Set [][2]float64

	// Candidates and pinned values used by the grid sampler
	Curvatures        []float64
	Probabilities     []float64
	PinnedCurvature   float64
	PinnedProbability float64

	Normalize bool
	Seed      uint64

	// StepLimit cuts episodes off after this many steps when positive
	StepLimit int

	Grass GrassName
}

// Default returns the default Config, which samples the evaluation
// grid in Both mode with un-normalized parameters
func Default() Config {
	domain := psi.DefaultDomain()
	pinned := psi.DefaultPinned(domain)

	return Config{
		Sampling:          Grid,
		Mode:              psi.Both,
		CurvatureMin:      domain.CurvatureRate.Min,
		CurvatureMax:      domain.CurvatureRate.Max,
		ProbabilityMin:    domain.ObstacleProbability.Min,
		ProbabilityMax:    domain.ObstacleProbability.Max,
		Set:               [][2]float64{{domain.CurvatureRate.Min, domain.ObstacleProbability.Min}},
		Curvatures:        append([]float64(nil), psi.EvalCurvatureRates...),
		Probabilities:     append([]float64(nil), psi.EvalObstacleProbabilities...),
		PinnedCurvature:   pinned.CurvatureRate,
		PinnedProbability: pinned.ObstacleProbability,
		Grass:             AllWheels,
	}
}

// Load reads a JSON Config from path. Fields missing from the file
// keep their Default values.
func Load(path string) (Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load: could not read config: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("load: could not decode config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("load: %w", err)
	}
	return c, nil
}

// Domain returns the parameter domain of the Config
func (c Config) Domain() psi.Domain {
	return psi.Domain{
		CurvatureRate:       r1.Interval{Min: c.CurvatureMin, Max: c.CurvatureMax},
		ObstacleProbability: r1.Interval{Min: c.ProbabilityMin, Max: c.ProbabilityMax},
	}
}

// Validate returns an error wrapping environment.ErrInvalidConfiguration
// if the Config cannot be used to build an environment
func (c Config) Validate() error {
	if c.Normalize {
		if err := c.Domain().Validate(); err != nil {
			return fmt.Errorf("validate: %w", err)
		}
	}

	switch c.Sampling {
	case Uniform:
		if len(c.Set) == 0 {
			return fmt.Errorf("validate: uniform sampling requires a "+
				"non-empty set: %w", env.ErrInvalidConfiguration)
		}

	case Grid:
		if _, err := psi.ParseMode(string(c.Mode)); err != nil {
			return fmt.Errorf("validate: %w", err)
		}
		if len(c.Curvatures) == 0 || len(c.Probabilities) == 0 {
			return fmt.Errorf("validate: grid sampling requires candidate "+
				"curvature rates and obstacle probabilities: %w",
				env.ErrInvalidConfiguration)
		}

	default:
		return fmt.Errorf("validate: no such sampling %q: %w", c.Sampling,
			env.ErrInvalidConfiguration)
	}

	if c.StepLimit < 0 {
		return fmt.Errorf("validate: step limit must be non-negative but "+
			"got %v: %w", c.StepLimit, env.ErrInvalidConfiguration)
	}

	if _, err := c.grassPolicy(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	return nil
}

// Sampler returns the parameter sampler described by the Config
func (c Config) Sampler() (psi.Sampler, error) {
	src := rand.NewSource(c.Seed)

	switch c.Sampling {
	case Uniform:
		if len(c.Set) == 0 {
			return nil, fmt.Errorf("sampler: uniform sampling requires a "+
				"non-empty set: %w", env.ErrInvalidConfiguration)
		}
		return psi.NewUniformSampler(psi.NewSet(c.Set), src), nil

	case Grid:
		mode, err := psi.ParseMode(string(c.Mode))
		if err != nil {
			return nil, fmt.Errorf("sampler: %w", err)
		}
		pinned := psi.Pair{
			CurvatureRate:       c.PinnedCurvature,
			ObstacleProbability: c.PinnedProbability,
		}
		g, err := psi.NewGridSampler(c.Curvatures, c.Probabilities, mode,
			pinned, src)
		if err != nil {
			return nil, fmt.Errorf("sampler: %w", err)
		}
		return g, nil
	}

	return nil, fmt.Errorf("sampler: no such sampling %q: %w", c.Sampling,
		env.ErrInvalidConfiguration)
}

// Classifier returns the contact classifier described by the Config
func (c Config) Classifier() (contact.Classifier, error) {
	policy, err := c.grassPolicy()
	if err != nil {
		return contact.Classifier{}, fmt.Errorf("classifier: %w", err)
	}
	return contact.NewClassifier(policy), nil
}

// Wrap returns base wrapped as a parameterized environment described
// by the Config. The wrapper must be reset before it is stepped.
func (c Config) Wrap(base env.BaseEnv) (*wrappers.Psi, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("wrap: %w", err)
	}

	sampler, err := c.Sampler()
	if err != nil {
		return nil, fmt.Errorf("wrap: %w", err)
	}

	composer, err := psi.NewComposer(c.Domain(), base.ObservationSpec(),
		c.Normalize)
	if err != nil {
		return nil, fmt.Errorf("wrap: %w", err)
	}

	var enders []wrappers.Ender
	if c.StepLimit > 0 {
		enders = append(enders, wrappers.NewStepLimit(c.StepLimit))
	}

	return wrappers.NewPsi(base, sampler, composer, enders...)
}

func (c Config) grassPolicy() (contact.GrassPolicy, error) {
	switch c.Grass {
	case "", AllWheels:
		return contact.AllWheels, nil
	case AnyWheel:
		return contact.AnyWheel, nil
	}
	return 0, fmt.Errorf("no such grass policy %q: %w", c.Grass,
		env.ErrInvalidConfiguration)
}
