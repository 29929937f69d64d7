// Package envtest provides a scripted BaseEnv for testing packages which
// consume the environment contracts without a racing simulation.
package envtest

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
	"gorgonia.org/tensor"

	env "github.com/samuelfneumann/psiracing/environment"
)

// Frame rate of the scripted simulation, used for ElapsedTime
const FPS float64 = 50

// Tile is a scripted tile with a fixed friction coefficient
type Tile float64

// Friction implements the environment.Tile interface
func (t Tile) Friction() float64 { return float64(t) }

// Wheel is a scripted wheel touching a fixed list of tiles
type Wheel []Tile

// Tiles implements the environment.Wheel interface
func (w Wheel) Tiles() []env.Tile {
	tiles := make([]env.Tile, len(w))
	for i := range w {
		tiles[i] = w[i]
	}
	return tiles
}

// Car is a scripted car
type Car struct {
	WheelList []Wheel
	Position  r2.Vec
}

// Wheels implements the environment.Car interface
func (c *Car) Wheels() []env.Wheel {
	wheels := make([]env.Wheel, len(c.WheelList))
	for i := range c.WheelList {
		wheels[i] = c.WheelList[i]
	}
	return wheels
}

// HullPosition implements the environment.Car interface
func (c *Car) HullPosition() r2.Vec { return c.Position }

// Wheel configurations used by scripts
var (
	Road     = []Wheel{{1}, {1}, {1}, {1}}
	Grass    = []Wheel{{}, {}, {}, {}}
	Obstacle = []Wheel{{1}, {1, 2.5}, {1}, {1}}

	// OneWheelOff has a single wheel on the grass
	OneWheelOff = []Wheel{{}, {1}, {1}, {1}}
)

// Env is a scripted BaseEnv. Each episode lasts EpisodeLength steps,
// every step returns Reward, and the car's wheels after step i
// (counting from 1) are given by Script(i). Images are Height×Width×3
// with every pixel set to the number of steps taken in the episode.
type Env struct {
	Height, Width int
	EpisodeLength int
	Reward        float64
	Script        func(step int) []Wheel

	// Errors to return from the next Reset or Step
	ResetErr error
	StepErr  error

	// Obstacles are the obstacle centroids reported by ObstacleCentroids
	Obstacles []r2.Vec

	// Resets records the parameters installed at each call to Reset
	Resets [][2]float64
	Closed bool

	curvature, probability float64
	steps                  int
	tiles                  int
	car                    *Car
	last                   *tensor.Dense
}

// New returns a new scripted environment with 4×4×3 images
func New(episodeLength int, reward float64,
	script func(step int) []Wheel) *Env {
	return &Env{
		Height:        4,
		Width:         4,
		EpisodeLength: episodeLength,
		Reward:        reward,
		Script:        script,
		car:           &Car{WheelList: Road},
	}
}

// SetParameters implements the environment.BaseEnv interface
func (e *Env) SetParameters(curvatureRate, obstacleProbability float64) {
	e.curvature = curvatureRate
	e.probability = obstacleProbability
}

// Reset implements the environment.BaseEnv interface
func (e *Env) Reset() (*tensor.Dense, error) {
	if e.ResetErr != nil {
		return nil, e.ResetErr
	}
	e.Resets = append(e.Resets, [2]float64{e.curvature, e.probability})
	e.steps = 0
	e.tiles = 0
	e.car = &Car{WheelList: Road}
	e.last = e.image()
	return e.last, nil
}

// Step implements the environment.BaseEnv interface
func (e *Env) Step(action *mat.VecDense) (*tensor.Dense, float64, bool,
	map[string]interface{}, error) {
	if e.StepErr != nil {
		return nil, 0, true, nil, e.StepErr
	}
	if action == nil {
		return nil, 0, true, nil, fmt.Errorf("step: nil action")
	}

	e.steps++
	wheels := Road
	if e.Script != nil {
		wheels = e.Script(e.steps)
	}
	e.car = &Car{WheelList: wheels, Position: r2.Vec{X: float64(e.steps)}}
	if !onGrass(wheels) {
		e.tiles++
	}

	e.last = e.image()
	done := e.steps >= e.EpisodeLength
	info := map[string]interface{}{"step": e.steps}
	return e.last, e.Reward, done, info, nil
}

// ObstacleCentroids implements the environment.ObstacleMap interface
func (e *Env) ObstacleCentroids() []r2.Vec { return e.Obstacles }

// LastImage returns the image most recently returned to the caller
func (e *Env) LastImage() *tensor.Dense { return e.last }

// TilesVisited implements the environment.BaseEnv interface
func (e *Env) TilesVisited() int { return e.tiles }

// ElapsedTime implements the environment.BaseEnv interface
func (e *Env) ElapsedTime() float64 { return float64(e.steps) / FPS }

// Car implements the environment.BaseEnv interface
func (e *Env) Car() env.Car { return e.car }

// ObservationSpec implements the environment.BaseEnv interface
func (e *Env) ObservationSpec() env.Spec {
	spec, err := env.NewSpec([]int{e.Height, e.Width, 3}, env.Observation,
		mat.NewVecDense(3, nil),
		mat.NewVecDense(3, []float64{255, 255, 255}), env.Continuous)
	if err != nil {
		panic(err)
	}
	return spec
}

// ActionSpec implements the environment.BaseEnv interface
func (e *Env) ActionSpec() env.Spec {
	spec, err := env.NewSpec([]int{3}, env.Action,
		mat.NewVecDense(3, []float64{-1, 0, 0}),
		mat.NewVecDense(3, []float64{1, 1, 1}), env.Continuous)
	if err != nil {
		panic(err)
	}
	return spec
}

// Close implements the environment.BaseEnv interface
func (e *Env) Close() error {
	e.Closed = true
	return nil
}

func (e *Env) image() *tensor.Dense {
	data := make([]float64, e.Height*e.Width*3)
	for i := range data {
		data[i] = float64(e.steps)
	}
	return tensor.New(tensor.WithShape(e.Height, e.Width, 3),
		tensor.WithBacking(data))
}

func onGrass(wheels []Wheel) bool {
	for _, w := range wheels {
		if len(w) > 0 {
			return false
		}
	}
	return true
}
