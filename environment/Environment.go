// Package environment outlines the interfaces that a racing simulation
// must satisfy so that it can be parameterized, observed, and evaluated
// by this module.
//
// The simulation itself (physics, procedural track and obstacle
// generation, rendering, and rewards) is owned by a BaseEnv. Packages
// in this module only ever talk to a BaseEnv through the narrow
// contracts defined here.
package environment

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
	"gorgonia.org/tensor"
)

// Tile is a discrete track or obstacle surface segment that a wheel
// can touch
type Tile interface {
	Friction() float64
}

// Wheel is a single wheel of a car, exposing the set of tiles it is
// currently in contact with. A wheel touching no tiles is on the grass.
type Wheel interface {
	Tiles() []Tile
}

// Car is the introspection contract for the vehicle simulated by a
// BaseEnv
type Car interface {
	Wheels() []Wheel
	HullPosition() r2.Vec
}

// BaseEnv is the racing simulation which generates tracks and advances
// the vehicle.
//
// SetParameters installs the curvature rate and obstacle probability
// which the BaseEnv must read the next time it generates a track, that
// is on the next call to Reset. Observations are H×W×C images whose
// per-channel bounds are described by ObservationSpec.
type BaseEnv interface {
	Reset() (*tensor.Dense, error)
	Step(action *mat.VecDense) (obs *tensor.Dense, reward float64,
		done bool, info map[string]interface{}, err error)

	SetParameters(curvatureRate, obstacleProbability float64)

	// TilesVisited and ElapsedTime report progress in the current
	// episode and are final once Step has returned done
	TilesVisited() int
	ElapsedTime() float64

	Car() Car

	ObservationSpec() Spec
	ActionSpec() Spec

	Close() error
}

// ObstacleMap is implemented by environments which can report where the
// obstacles of the current track are
type ObstacleMap interface {
	ObstacleCentroids() []r2.Vec
}
