package trackers

import "github.com/samuelfneumann/psiracing/experiment"

// GrassTime tracks and saves the proportion of steps that the car
// spent on the grass in each episode of an evaluation
type GrassTime struct {
	proportions []float64
	filename    string
}

// NewGrassTime returns a new GrassTime Tracker which will save its
// data at filename
func NewGrassTime(filename string) *GrassTime {
	return &GrassTime{filename: filename}
}

// Track implements the experiment.Tracker interface
func (g *GrassTime) Track(m experiment.EpisodeMetrics) {
	g.proportions = append(g.proportions, m.GrassProportion())
}

// Proportions returns the grass proportions tracked so far
func (g *GrassTime) Proportions() []float64 {
	return append([]float64(nil), g.proportions...)
}

// Save saves the data tracked by the GrassTime Tracker to disk
func (g *GrassTime) Save() error {
	return save(g.filename, g.proportions)
}
