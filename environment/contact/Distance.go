package contact

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	env "github.com/samuelfneumann/psiracing/environment"
)

// NearestObstacleDistance returns the Euclidean distance from position
// to the closest of the obstacle centroids. A car sitting exactly on a
// centroid has distance 0.
//
// If there are no obstacles the distance is undefined, and an error
// wrapping environment.ErrEmptyInput is returned.
func NearestObstacleDistance(position r2.Vec, centroids []r2.Vec) (float64,
	error) {
	if len(centroids) == 0 {
		return math.Inf(1), fmt.Errorf("nearestObstacleDistance: no "+
			"obstacles: %w", env.ErrEmptyInput)
	}

	nearest := math.Inf(1)
	for _, c := range centroids {
		d := math.Hypot(c.X-position.X, c.Y-position.Y)
		if d < nearest {
			nearest = d
		}
	}
	return nearest, nil
}
