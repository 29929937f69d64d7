// Package psi implements the environment parameters psi = [K, p] which
// control episode generation in a racing BaseEnv, where K is the track
// curvature rate and p the obstacle spawn probability.
//
// The package provides samplers which draw one parameter Pair per
// episode, and a Composer which bundles a raw image observation with
// the active Pair into an Observation.
package psi

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/psiracing/environment"
	"github.com/samuelfneumann/psiracing/utils/floatutils"
)

const (
	MinCurvatureRate float64 = 0.31
	MaxCurvatureRate float64 = 0.71

	MinObstacleProbability float64 = 0.05
	MaxObstacleProbability float64 = 0.13
)

var (
	// EvalCurvatureRates are the curvature rates evaluated on by default
	EvalCurvatureRates = []float64{0.31, 0.41, 0.51, 0.61, 0.71}

	// EvalObstacleProbabilities are the obstacle probabilities evaluated
	// on by default
	EvalObstacleProbabilities = []float64{0.05, 0.07, 0.09, 0.11, 0.13}
)

// Pair is a single setting of the environment parameters. A Pair is
// fixed for the duration of an episode.
type Pair struct {
	CurvatureRate       float64
	ObstacleProbability float64
}

// Vec returns the Pair as the 2-vector [K, p]
func (p Pair) Vec() *mat.VecDense {
	return mat.NewVecDense(2, []float64{p.CurvatureRate, p.ObstacleProbability})
}

func (p Pair) String() string {
	return fmt.Sprintf("[K: %v, p: %v]", p.CurvatureRate, p.ObstacleProbability)
}

// Set is an ordered collection of candidate Pairs
type Set []Pair

// NewSet returns a Set from rows of [K, p]
func NewSet(rows [][2]float64) Set {
	s := make(Set, len(rows))
	for i, row := range rows {
		s[i] = Pair{row[0], row[1]}
	}
	return s
}

// Contains returns whether p is an element of the Set
func (s Set) Contains(p Pair) bool {
	for _, q := range s {
		if q == p {
			return true
		}
	}
	return false
}

// Clone returns a copy of the Set which shares no memory with s
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	c := make(Set, len(s))
	copy(c, s)
	return c
}

// Domain is the range that each environment parameter is declared to
// lie in. It is used to normalize parameters to [0, 1].
type Domain struct {
	CurvatureRate       r1.Interval
	ObstacleProbability r1.Interval
}

// DefaultDomain returns the default parameter domain
// [0.31, 0.71] × [0.05, 0.13]
func DefaultDomain() Domain {
	return Domain{
		CurvatureRate: r1.Interval{
			Min: MinCurvatureRate,
			Max: MaxCurvatureRate,
		},
		ObstacleProbability: r1.Interval{
			Min: MinObstacleProbability,
			Max: MaxObstacleProbability,
		},
	}
}

// Validate returns an error if either interval of the domain is empty
// or reversed, in which case normalization is undefined
func (d Domain) Validate() error {
	if d.CurvatureRate.Max <= d.CurvatureRate.Min {
		return fmt.Errorf("validate: curvature rate domain %v is empty: %w",
			d.CurvatureRate, env.ErrInvalidConfiguration)
	}
	if d.ObstacleProbability.Max <= d.ObstacleProbability.Min {
		return fmt.Errorf("validate: obstacle probability domain %v is "+
			"empty: %w", d.ObstacleProbability, env.ErrInvalidConfiguration)
	}
	return nil
}

// Normalize min-max scales each component of p by the domain. Values
// outside the domain are not clipped.
func (d Domain) Normalize(p Pair) Pair {
	return Pair{
		CurvatureRate: floatutils.RescaleInterval(p.CurvatureRate,
			d.CurvatureRate),
		ObstacleProbability: floatutils.RescaleInterval(p.ObstacleProbability,
			d.ObstacleProbability),
	}
}
