package racetrack

import (
	"math"

	"github.com/ByteArena/box2d"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/samuelfneumann/psiracing/environment/box2d/tiles"
)

// buildTrack creates the tiles of a new track in the world.
//
// Checkpoints are spaced evenly around a circle of radius TrackRadius,
// then each is jittered in angle and radius by up to half the curvature
// rate. Consecutive checkpoints are joined by TilesPerSegment tiles.
// Jitter never exceeds half the checkpoint spacing, so checkpoints stay
// in order around the origin.
func (r *Racetrack) buildTrack() {
	jitter := distuv.Uniform{Min: -0.5, Max: 0.5, Src: r.rng}
	obstacle := distuv.Bernoulli{P: r.probability, Src: r.rng}

	points := make([]box2d.B2Vec2, Checkpoints)
	for i := range points {
		alpha := 2 * math.Pi * (float64(i) + r.curvature*jitter.Rand()) /
			float64(Checkpoints)
		radius := TrackRadius * (1 + r.curvature*jitter.Rand())
		points[i] = box2d.MakeB2Vec2(radius*math.Cos(alpha),
			radius*math.Sin(alpha))
	}

	r.track = make([]*tiles.Tile, 0, Checkpoints*TilesPerSegment)
	r.roadTiles = 0
	for i := range points {
		from, to := points[i], points[(i+1)%Checkpoints]
		dx, dy := to.X-from.X, to.Y-from.Y
		angle := math.Atan2(dy, dx)
		halfLength := math.Hypot(dx, dy) / float64(2*TilesPerSegment)

		for j := 0; j < TilesPerSegment; j++ {
			frac := (float64(j) + 0.5) / float64(TilesPerSegment)
			center := box2d.MakeB2Vec2(from.X+frac*dx, from.Y+frac*dy)

			// The car starts on the first segment
			isObstacle := i > 0 && obstacle.Rand() == 1
			friction := tiles.RoadFriction
			if isObstacle {
				friction = ObstacleFriction
			} else {
				r.roadTiles++
			}

			t := tiles.NewTile(&r.world, len(r.track), center, halfLength,
				TrackHalfWidth, angle, friction, isObstacle)
			r.track = append(r.track, t)
		}
	}
}

// buildCar creates the hull and wheels of the car at the centre of the
// first tile, facing along the track
func (r *Racetrack) buildCar() {
	start := r.track[0].Body
	r.heading = start.GetAngle()

	hull := newCarBody(&r.world, HullHalfLength, HullHalfWidth, true)
	r.wheels = make([]*box2d.B2Body, len(WheelPositions))
	for i := range r.wheels {
		r.wheels[i] = newCarBody(&r.world, WheelHalfLength, WheelHalfWidth,
			false)
	}
	r.car = tiles.NewCar(hull, r.wheels...)

	r.place(start.GetPosition(), r.heading)
}

// newCarBody creates a dynamic box body for part of the car. Bodies of
// the car never collide with each other and never sleep, since Box2D
// does not update the contacts of sleeping bodies.
func newCarBody(world *box2d.B2World, halfLength, halfWidth float64,
	sensor bool) *box2d.B2Body {
	bodyDef := box2d.MakeB2BodyDef()
	bodyDef.Type = 2 // Dynamic body
	bodyDef.AllowSleep = false
	body := world.CreateBody(&bodyDef)

	shape := box2d.NewB2PolygonShape()
	shape.SetAsBox(halfLength, halfWidth)

	filter := box2d.MakeB2Filter()
	filter.GroupIndex = -1

	fixDef := box2d.MakeB2FixtureDef()
	fixDef.Shape = shape
	fixDef.Density = 1.0
	fixDef.IsSensor = sensor
	fixDef.Filter = filter
	body.CreateFixtureFromDef(&fixDef)

	return body
}

// place moves the hull to position with the argument heading, and the
// wheels to their positions relative to the hull
func (r *Racetrack) place(position box2d.B2Vec2, heading float64) {
	r.car.Hull.SetTransform(position, heading)

	trans := r.car.Hull.GetTransform()
	for i, wheel := range r.wheels {
		wheel.SetTransform(box2d.B2TransformVec2Mul(trans, WheelPositions[i]),
			heading)
	}
}

// drive advances the car by one frame
func (r *Racetrack) drive(steer, gas, brake float64) {
	dt := 1 / FPS

	accel := Acceleration*gas - BrakeDeceleration*brake -
		(Drag+r.resistance())*r.speed
	r.speed = math.Max(0, math.Min(MaxSpeed, r.speed+accel*dt))

	// Negative steering turns left, which is anticlockwise
	r.heading -= steer * TurnRate * dt * math.Min(r.speed/TurnSpeed, 1)

	pos := r.car.Hull.GetPosition()
	pos.X += r.speed * dt * math.Cos(r.heading)
	pos.Y += r.speed * dt * math.Sin(r.heading)
	r.place(pos, r.heading)
}

// resistance returns the mean rolling resistance of the surfaces under
// the wheels. Wheels on the grass have GrassDrag, and wheels touching
// tiles with more friction than the road slow the car further.
func (r *Racetrack) resistance() float64 {
	wheels := r.car.Wheels()
	var total float64
	for _, w := range wheels {
		friction := 0.0
		for _, t := range w.Tiles() {
			friction = math.Max(friction, t.Friction())
		}

		switch {
		case friction == 0:
			total += GrassDrag
		case friction > tiles.RoadFriction:
			total += ObstacleDrag * (friction - tiles.RoadFriction)
		}
	}
	return total / float64(len(wheels))
}
