// Package contact classifies the surface a car is driving on and
// measures the car's distance to obstacles.
package contact

import (
	env "github.com/samuelfneumann/psiracing/environment"
)

// ObstacleFriction is the friction coefficient above which a tile is
// considered an obstacle rather than road
const ObstacleFriction float64 = 2.0

// Surface is the kind of surface a car is in contact with
type Surface int

const (
	OnRoad Surface = iota
	OnGrass
	OnObstacle
)

func (s Surface) String() string {
	switch s {
	case OnGrass:
		return "Grass"
	case OnObstacle:
		return "Obstacle"
	default:
		return "Road"
	}
}

// GrassPolicy determines when a car is considered to be on the grass
type GrassPolicy int

const (
	// AllWheels considers a car on the grass only when no wheel touches
	// any tile
	AllWheels GrassPolicy = iota

	// AnyWheel considers a car on the grass as soon as one wheel
	// touches no tile. A wheel grazing the grass while still touching
	// a tile does not count.
	AnyWheel
)

func (g GrassPolicy) String() string {
	switch g {
	case AnyWheel:
		return "AnyWheel"
	default:
		return "AllWheels"
	}
}

// Classifier classifies the surface that a car's wheels are touching.
// The zero value uses the AllWheels grass policy.
type Classifier struct {
	Grass GrassPolicy
}

// NewClassifier returns a new Classifier using the argument grass
// policy
func NewClassifier(grass GrassPolicy) Classifier {
	return Classifier{grass}
}

// Classify returns the surface that the wheels are in contact with.
// A car on the grass is OnGrass regardless of any obstacles its other
// wheels touch. Otherwise, if any wheel touches a tile with friction
// greater than ObstacleFriction the car is OnObstacle, and if not it
// is OnRoad.
func (c Classifier) Classify(wheels []env.Wheel) Surface {
	if c.onGrass(wheels) {
		return OnGrass
	}

	for _, w := range wheels {
		for _, tile := range w.Tiles() {
			if tile.Friction() > ObstacleFriction {
				return OnObstacle
			}
		}
	}
	return OnRoad
}

// ClassifyCar is a wrapper to use Classify with a car instead of its
// wheels
func (c Classifier) ClassifyCar(car env.Car) Surface {
	return c.Classify(car.Wheels())
}

func (c Classifier) onGrass(wheels []env.Wheel) bool {
	switch c.Grass {
	case AnyWheel:
		for _, w := range wheels {
			if len(w.Tiles()) == 0 {
				return true
			}
		}
		return false

	default:
		for _, w := range wheels {
			if len(w.Tiles()) > 0 {
				return false
			}
		}
		return true
	}
}
