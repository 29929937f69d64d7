// Package experiment implements functionality for evaluating policies
// on parameterized racing environments
package experiment

import (
	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/psiracing/environment"
	ts "github.com/samuelfneumann/psiracing/timestep"
)

// Environment is an environment that policies can be evaluated on. The
// wrappers.Psi environment satisfies this interface.
type Environment interface {
	Reset() (ts.TimeStep, error)
	Step(action *mat.VecDense) (ts.TimeStep, bool, error)

	Car() env.Car
	TilesVisited() int
	ElapsedTime() float64
}

// Tracker keeps track of the metrics of each evaluation episode and
// saves them once the evaluation has finished.
//
// Track is called as soon as each episode finishes, before the next
// episode starts.
type Tracker interface {
	Track(EpisodeMetrics)
	Save() error
}
