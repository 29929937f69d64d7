package psi

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"

	env "github.com/samuelfneumann/psiracing/environment"
)

// Mode determines which of the environment parameters a GridSampler
// varies
type Mode string

const (
	CurvatureOnly   Mode = "curvature_only"
	ProbabilityOnly Mode = "probability_only"
	Both            Mode = "both"
)

// ParseMode parses a Mode from its name. The names "turn_rate" and
// "obs_prob" are accepted as aliases of CurvatureOnly and
// ProbabilityOnly respectively.
func ParseMode(name string) (Mode, error) {
	switch name {
	case string(CurvatureOnly), "turn_rate":
		return CurvatureOnly, nil

	case string(ProbabilityOnly), "obs_prob":
		return ProbabilityOnly, nil

	case string(Both):
		return Both, nil
	}

	return "", fmt.Errorf("parseMode: no such mode %q: %w", name,
		env.ErrInvalidConfiguration)
}

// DefaultPinned returns the values that a GridSampler fixes a parameter
// to when that parameter is not varied: the minimum curvature rate of
// the domain and an obstacle probability of 0.
func DefaultPinned(d Domain) Pair {
	return Pair{CurvatureRate: d.CurvatureRate.Min, ObstacleProbability: 0}
}

// GridSampler samples environment parameters for evaluation. It holds
// a list of candidate curvature rates and a list of candidate obstacle
// probabilities and samples a value from each list independently and
// uniformly.
//
// Because each axis is sampled independently, in Both mode any
// combination in the Cartesian product of the two lists can be
// returned. This differs from the UniformSampler, which samples entire
// rows of a Set.
//
// In CurvatureOnly mode the obstacle probability is pinned to a single
// value, and in ProbabilityOnly mode the curvature rate is pinned.
type GridSampler struct {
	mode          Mode
	curvatures    []float64
	probabilities []float64

	curvatureIndexer   distuv.Categorical
	probabilityIndexer distuv.Categorical
}

// NewGridSampler returns a new GridSampler. The pinned Pair gives the
// value used for the parameter which mode does not vary, see
// DefaultPinned.
func NewGridSampler(curvatures, probabilities []float64, mode Mode,
	pinned Pair, src rand.Source) (*GridSampler, error) {
	switch mode {
	case CurvatureOnly:
		probabilities = []float64{pinned.ObstacleProbability}

	case ProbabilityOnly:
		curvatures = []float64{pinned.CurvatureRate}

	case Both:

	default:
		return nil, fmt.Errorf("newGridSampler: no such mode %q: %w", mode,
			env.ErrInvalidConfiguration)
	}

	if len(curvatures) == 0 {
		return nil, fmt.Errorf("newGridSampler: no candidate curvature "+
			"rates: %w", env.ErrInvalidConfiguration)
	}
	if len(probabilities) == 0 {
		return nil, fmt.Errorf("newGridSampler: no candidate obstacle "+
			"probabilities: %w", env.ErrInvalidConfiguration)
	}

	g := &GridSampler{
		mode:          mode,
		curvatures:    append([]float64(nil), curvatures...),
		probabilities: append([]float64(nil), probabilities...),
	}
	g.curvatureIndexer = newIndexer(len(g.curvatures), src)
	g.probabilityIndexer = newIndexer(len(g.probabilities), src)

	return g, nil
}

// Sample returns a Pair with each component sampled independently
func (g *GridSampler) Sample() (Pair, error) {
	k := g.curvatures[int(g.curvatureIndexer.Rand())]
	p := g.probabilities[int(g.probabilityIndexer.Rand())]
	return Pair{CurvatureRate: k, ObstacleProbability: p}, nil
}

// Mode returns the mode of the sampler
func (g *GridSampler) Mode() Mode {
	return g.mode
}

// CurvatureRates returns the curvature rates sampled from
func (g *GridSampler) CurvatureRates() []float64 {
	return append([]float64(nil), g.curvatures...)
}

// ObstacleProbabilities returns the obstacle probabilities sampled from
func (g *GridSampler) ObstacleProbabilities() []float64 {
	return append([]float64(nil), g.probabilities...)
}
