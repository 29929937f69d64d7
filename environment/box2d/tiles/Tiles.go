// Package tiles tracks which track tiles the wheels of a Box2D car are
// touching, so that a racing simulation built on Box2D can expose its
// car through the environment.Car interface.
//
// Tiles are static bodies with a single sensor fixture. Wheels are the
// bodies of the car's wheels. A FrictionDetector registered as the
// world's contact listener keeps the set of tiles each wheel touches
// up to date as the world is stepped, and counts the road tiles the
// car has visited in the episode.
package tiles

import (
	"sort"

	"github.com/ByteArena/box2d"
	"gonum.org/v1/gonum/spatial/r2"

	env "github.com/samuelfneumann/psiracing/environment"
)

// Default friction of road tiles
const RoadFriction float64 = 1.0

// Tile is a single track or obstacle tile
type Tile struct {
	Body     *box2d.B2Body
	Index    int
	Obstacle bool

	friction float64
	visited  bool
}

// NewTile creates a new tile body in world. The tile is a box with the
// argument half-width and half-height, centred at center and rotated
// by angle radians. Obstacle tiles are never counted as visited.
func NewTile(world *box2d.B2World, index int, center box2d.B2Vec2,
	halfWidth, halfHeight, angle, friction float64, obstacle bool) *Tile {
	bodyDef := box2d.MakeB2BodyDef()
	bodyDef.Type = 0 // Static body
	bodyDef.Position = center
	bodyDef.Angle = angle
	body := world.CreateBody(&bodyDef)

	shape := box2d.NewB2PolygonShape()
	shape.SetAsBox(halfWidth, halfHeight)

	fixDef := box2d.MakeB2FixtureDef()
	fixDef.Shape = shape
	fixDef.IsSensor = true
	body.CreateFixtureFromDef(&fixDef)

	t := &Tile{
		Body:     body,
		Index:    index,
		Obstacle: obstacle,
		friction: friction,
	}
	body.SetUserData(t)

	return t
}

// Friction implements the environment.Tile interface
func (t *Tile) Friction() float64 {
	return t.friction
}

// Visited returns whether a wheel has touched the tile
func (t *Tile) Visited() bool {
	return t.visited
}

// Centroid returns the position of the centre of the tile
func (t *Tile) Centroid() r2.Vec {
	return toR2(t.Body.GetPosition())
}

// Wheel tracks the tiles that a single wheel body is in contact with
type Wheel struct {
	Body  *box2d.B2Body
	tiles map[*Tile]struct{}
}

// NewWheel registers body as a wheel so that a FrictionDetector tracks
// the tiles it touches
func NewWheel(body *box2d.B2Body) *Wheel {
	w := &Wheel{Body: body, tiles: make(map[*Tile]struct{})}
	body.SetUserData(w)
	return w
}

// Tiles implements the environment.Wheel interface. Tiles are returned
// in order of their index.
func (w *Wheel) Tiles() []env.Tile {
	touching := make([]*Tile, 0, len(w.tiles))
	for t := range w.tiles {
		touching = append(touching, t)
	}
	sort.Slice(touching, func(i, j int) bool {
		return touching[i].Index < touching[j].Index
	})

	tiles := make([]env.Tile, len(touching))
	for i := range touching {
		tiles[i] = touching[i]
	}
	return tiles
}

// Car is a Box2D car made of a hull and its wheels
type Car struct {
	Hull   *box2d.B2Body
	wheels []*Wheel
}

// NewCar returns a new Car, registering each wheel body with NewWheel
func NewCar(hull *box2d.B2Body, wheels ...*box2d.B2Body) *Car {
	c := &Car{Hull: hull, wheels: make([]*Wheel, len(wheels))}
	for i := range wheels {
		c.wheels[i] = NewWheel(wheels[i])
	}
	return c
}

// Wheels implements the environment.Car interface
func (c *Car) Wheels() []env.Wheel {
	wheels := make([]env.Wheel, len(c.wheels))
	for i := range c.wheels {
		wheels[i] = c.wheels[i]
	}
	return wheels
}

// HullPosition implements the environment.Car interface
func (c *Car) HullPosition() r2.Vec {
	return toR2(c.Hull.GetPosition())
}

// ObstacleCentroids returns the centroids of all obstacle tiles
func ObstacleCentroids(tiles []*Tile) []r2.Vec {
	var centroids []r2.Vec
	for _, t := range tiles {
		if t.Obstacle {
			centroids = append(centroids, t.Centroid())
		}
	}
	return centroids
}

func toR2(v box2d.B2Vec2) r2.Vec {
	return r2.Vec{X: v.X, Y: v.Y}
}
