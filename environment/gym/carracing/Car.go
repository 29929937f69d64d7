// Package carracing implements an environment.BaseEnv backed by the
// Python CarRacing-obstacles environment.
//
// The Python environment is driven through the CPython C-API using
// DataDog/go-python3, so the package must be built with cgo and the
// python build tag:
//
//	go build -tags python
//
// The Python module named by Config.Module must be importable from
// the interpreter's sys.path (e.g. through PYTHONPATH). Without the
// python build tag, New always returns an error.
package carracing

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"

	env "github.com/samuelfneumann/psiracing/environment"
)

// Image dimensions of CarRacing observations
const (
	StateH   int = 96
	StateW   int = 96
	Channels int = 3
)

// Defaults for the Python environment location
const (
	DefaultModule string = "car_racing_obstacles"
	DefaultClass  string = "CarRacingObstacles"
)

// Config determines which Python class is used as the simulator
type Config struct {
	Module string
	Class  string

	// Verbose is passed to the Python constructor
	Verbose bool
}

// DefaultConfig returns the default Config
func DefaultConfig() Config {
	return Config{Module: DefaultModule, Class: DefaultClass}
}

// ObservationSpec returns the specification of CarRacing images
func ObservationSpec() env.Spec {
	high := mat.NewVecDense(Channels, nil)
	for i := 0; i < Channels; i++ {
		high.SetVec(i, 255)
	}

	spec, err := env.NewSpec([]int{StateH, StateW, Channels},
		env.Observation, mat.NewVecDense(Channels, nil), high,
		env.Continuous)
	if err != nil {
		panic(err)
	}
	return spec
}

// ActionSpec returns the specification of CarRacing actions: steering
// in [-1, 1], gas in [0, 1] and brake in [0, 1]
func ActionSpec() env.Spec {
	spec, err := env.NewSpec([]int{3}, env.Action,
		mat.NewVecDense(3, []float64{-1, 0, 0}),
		mat.NewVecDense(3, []float64{1, 1, 1}), env.Continuous)
	if err != nil {
		panic(err)
	}
	return spec
}

// tile is a snapshot of a Python track tile
type tile float64

func (t tile) Friction() float64 { return float64(t) }

// wheel is a snapshot of the tiles a Python wheel touches
type wheel []tile

func (w wheel) Tiles() []env.Tile {
	tiles := make([]env.Tile, len(w))
	for i := range w {
		tiles[i] = w[i]
	}
	return tiles
}

// car is a snapshot of the Python car taken after a step
type car struct {
	wheels   []wheel
	position r2.Vec
}

func (c car) Wheels() []env.Wheel {
	wheels := make([]env.Wheel, len(c.wheels))
	for i := range c.wheels {
		wheels[i] = c.wheels[i]
	}
	return wheels
}

func (c car) HullPosition() r2.Vec {
	return c.position
}
