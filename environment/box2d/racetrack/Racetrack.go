// Package racetrack provides a self-contained Box2D racing simulation
// which implements environment.BaseEnv without a Python interpreter.
//
// Each call to Reset generates a closed track of tiles around the
// origin. The curvature rate controls how far the checkpoints of the
// track are displaced from a circle, and the obstacle probability is
// the probability that any tile (other than those on the starting
// segment) is an obstacle with a high friction coefficient. Tiles and
// wheels are Box2D bodies, and the tiles each wheel touches are tracked
// with a tiles.FrictionDetector. The car itself is driven with a simple
// kinematic model and rendered top-down with gg.
package racetrack

import (
	"fmt"
	"math"

	"github.com/ByteArena/box2d"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/spatial/r2"
	"gorgonia.org/tensor"

	env "github.com/samuelfneumann/psiracing/environment"
	"github.com/samuelfneumann/psiracing/environment/box2d/tiles"
	"github.com/samuelfneumann/psiracing/environment/gym/carracing"
	"github.com/samuelfneumann/psiracing/utils/floatutils"
)

const (
	FPS float64 = 50

	// Track layout, in Box2D units
	TrackRadius     float64 = 40.0
	TrackHalfWidth  float64 = 3.0
	Checkpoints     int     = 12
	TilesPerSegment int     = 4
	Playfield       float64 = 2 * TrackRadius

	ObstacleFriction float64 = 3 * tiles.RoadFriction

	// Car dynamics
	MaxSpeed          float64 = 12.0
	Acceleration      float64 = 8.0
	BrakeDeceleration float64 = 20.0
	Drag              float64 = 0.5
	GrassDrag         float64 = 2.0
	ObstacleDrag      float64 = 1.0
	TurnRate          float64 = 2.5
	TurnSpeed         float64 = 4.0

	// Rewards
	FrameReward       float64 = -0.1
	TrackReward       float64 = 1000.0
	OutOfBoundsReward float64 = -100.0

	DefaultMaxSteps int = 1000
)

// Car geometry, relative to the centre of the hull
const (
	HullHalfLength  float64 = 1.2
	HullHalfWidth   float64 = 0.7
	WheelHalfLength float64 = 0.35
	WheelHalfWidth  float64 = 0.2
)

var WheelPositions = []box2d.B2Vec2{
	{X: HullHalfLength, Y: 0.9},
	{X: HullHalfLength, Y: -0.9},
	{X: -HullHalfLength, Y: 0.9},
	{X: -HullHalfLength, Y: -0.9},
}

// Racetrack is a Box2D racing environment
type Racetrack struct {
	rng         *rand.Rand
	curvature   float64
	probability float64
	maxSteps    int

	world    box2d.B2World
	detector *tiles.FrictionDetector
	track    []*tiles.Tile
	car      *tiles.Car
	wheels   []*box2d.B2Body

	roadTiles   int
	heading     float64
	speed       float64
	steps       int
	lastVisited int
	started     bool
	done        bool

	actionBounds []r1.Interval
	obsSpec      env.Spec
}

// New returns a new Racetrack. Tracks are generated from a random
// source seeded with seed, and episodes end after at most maxSteps
// steps.
func New(seed uint64, maxSteps int) (*Racetrack, error) {
	if maxSteps <= 0 {
		return nil, fmt.Errorf("new: maximum steps must be positive but "+
			"got %v: %w", maxSteps, env.ErrInvalidConfiguration)
	}

	actionSpec := carracing.ActionSpec()
	bounds := make([]r1.Interval, actionSpec.LowerBound.Len())
	for i := range bounds {
		bounds[i] = r1.Interval{
			Min: actionSpec.LowerBound.AtVec(i),
			Max: actionSpec.UpperBound.AtVec(i),
		}
	}

	return &Racetrack{
		rng:          rand.New(rand.NewSource(seed)),
		maxSteps:     maxSteps,
		actionBounds: bounds,
		obsSpec:      carracing.ObservationSpec(),
	}, nil
}

// SetParameters implements the environment.BaseEnv interface
func (r *Racetrack) SetParameters(curvatureRate, obstacleProbability float64) {
	r.curvature = curvatureRate
	r.probability = obstacleProbability
}

// Reset generates a new track with the installed parameters and places
// the car at the start of the track
func (r *Racetrack) Reset() (*tensor.Dense, error) {
	r.world = box2d.MakeB2World(box2d.MakeB2Vec2(0, 0))
	r.detector = tiles.NewFrictionDetector()
	r.world.SetContactListener(r.detector)

	r.buildTrack()
	r.buildCar()

	// Register the contacts of the starting position
	tiles.Step(&r.world, 0)

	r.speed = 0
	r.steps = 0
	r.lastVisited = r.detector.VisitedCount()
	r.started = true
	r.done = false

	return r.render(), nil
}

// Step takes one step in the environment given action a =
// [steering, gas, brake]. Each component is clipped to its bounds.
func (r *Racetrack) Step(a *mat.VecDense) (*tensor.Dense, float64, bool,
	map[string]interface{}, error) {
	if !r.started || r.done {
		return nil, 0, true, nil, fmt.Errorf("step: environment must be "+
			"reset: %w", env.ErrInvalidState)
	}
	if a == nil || a.Len() != len(r.actionBounds) {
		return nil, 0, true, nil, fmt.Errorf("step: action must have "+
			"%v dimensions: %w", len(r.actionBounds),
			env.ErrInvalidConfiguration)
	}

	steer := floatutils.ClipInterval(a.AtVec(0), r.actionBounds[0])
	gas := floatutils.ClipInterval(a.AtVec(1), r.actionBounds[1])
	brake := floatutils.ClipInterval(a.AtVec(2), r.actionBounds[2])

	r.drive(steer, gas, brake)
	tiles.Step(&r.world, 1/FPS)
	r.steps++

	reward := FrameReward
	visited := r.detector.VisitedCount()
	reward += float64(visited-r.lastVisited) * TrackReward /
		float64(r.roadTiles)
	r.lastVisited = visited

	info := map[string]interface{}{}
	pos := r.car.HullPosition()
	switch {
	case visited == r.roadTiles:
		r.done = true
		info["lap_complete"] = true

	case math.Abs(pos.X) > Playfield || math.Abs(pos.Y) > Playfield:
		r.done = true
		reward = OutOfBoundsReward

	case r.steps >= r.maxSteps:
		r.done = true
	}

	return r.render(), reward, r.done, info, nil
}

// TilesVisited implements the environment.BaseEnv interface
func (r *Racetrack) TilesVisited() int {
	if r.detector == nil {
		return 0
	}
	return r.detector.VisitedCount()
}

// ElapsedTime implements the environment.BaseEnv interface
func (r *Racetrack) ElapsedTime() float64 {
	return float64(r.steps) / FPS
}

// Car implements the environment.BaseEnv interface
func (r *Racetrack) Car() env.Car {
	return r.car
}

// ObstacleCentroids implements the environment.ObstacleMap interface
func (r *Racetrack) ObstacleCentroids() []r2.Vec {
	return tiles.ObstacleCentroids(r.track)
}

// RoadTiles returns the number of tiles on the current track which can
// be visited
func (r *Racetrack) RoadTiles() int {
	return r.roadTiles
}

// ObservationSpec returns the specification of the rendered images,
// which match those of CarRacing
func (r *Racetrack) ObservationSpec() env.Spec {
	return r.obsSpec
}

// ActionSpec returns the CarRacing action specification
func (r *Racetrack) ActionSpec() env.Spec {
	return carracing.ActionSpec()
}

// Close implements the environment.BaseEnv interface
func (r *Racetrack) Close() error {
	return nil
}

func (r *Racetrack) String() string {
	return fmt.Sprintf("Racetrack: K=%v  |  p=%v", r.curvature,
		r.probability)
}
