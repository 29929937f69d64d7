package tiles

import "github.com/ByteArena/box2d"

// Solver iterations used by Step
const (
	VelocityIterations int = 6 * 30
	PositionIterations int = 2 * 30
)

// FrictionDetector is a Box2D contact listener which records the tiles
// each Wheel is touching. It must be registered with the world using
// SetContactListener before the world is stepped.
type FrictionDetector struct {
	visited int
}

// Step advances world by dt seconds. Bodies moved with SetTransform
// only begin touching tiles on the world step after they are moved, so
// Step follows the timed step with a zero-length step which reports
// those contacts without advancing the simulation.
func Step(world *box2d.B2World, dt float64) {
	world.Step(dt, VelocityIterations, PositionIterations)
	world.Step(0, VelocityIterations, PositionIterations)
}

// NewFrictionDetector returns a new FrictionDetector
func NewFrictionDetector() *FrictionDetector {
	return &FrictionDetector{}
}

// BeginContact is called by Box2D when two fixtures begin to touch
func (f *FrictionDetector) BeginContact(contact box2d.B2ContactInterface) {
	f.contact(contact, true)
}

// EndContact is called by Box2D when two fixtures stop touching
func (f *FrictionDetector) EndContact(contact box2d.B2ContactInterface) {
	f.contact(contact, false)
}

func (f *FrictionDetector) PreSolve(contact box2d.B2ContactInterface,
	oldManifold box2d.B2Manifold) {
}

func (f *FrictionDetector) PostSolve(contact box2d.B2ContactInterface,
	impulse *box2d.B2ContactImpulse) {
}

// VisitedCount returns the number of distinct road tiles touched by a
// wheel since the last call to Reset
func (f *FrictionDetector) VisitedCount() int {
	return f.visited
}

// Reset clears the visited count. Tiles created for a new track start
// out unvisited.
func (f *FrictionDetector) Reset() {
	f.visited = 0
}

func (f *FrictionDetector) contact(contact box2d.B2ContactInterface,
	begin bool) {
	a := contact.GetFixtureA().GetBody().GetUserData()
	b := contact.GetFixtureB().GetBody().GetUserData()

	tile, wheel := match(a, b)
	if tile == nil || wheel == nil {
		tile, wheel = match(b, a)
	}
	if tile == nil || wheel == nil {
		return
	}

	if !begin {
		delete(wheel.tiles, tile)
		return
	}

	wheel.tiles[tile] = struct{}{}
	if !tile.visited && !tile.Obstacle {
		tile.visited = true
		f.visited++
	}
}

func match(a, b interface{}) (*Tile, *Wheel) {
	tile, _ := a.(*Tile)
	wheel, _ := b.(*Wheel)
	return tile, wheel
}
