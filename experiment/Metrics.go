package experiment

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/samuelfneumann/psiracing/environment/psi"
)

// EpisodeMetrics are the metrics collected over a single evaluation
// episode.
//
// Every step the car is classified as either on the grass or in
// contact with the track (road or obstacle), so GrassSteps +
// ContactSteps == Steps. ObstacleSteps counts the contact steps on
// which an obstacle was touched. MinObstacleDistance is the closest
// the car's hull came to an obstacle centroid, and is +Inf when no
// obstacles were reported.
type EpisodeMetrics struct {
	Episode       int
	Psi           psi.Pair
	Score         float64
	Steps         int
	GrassSteps    int
	ContactSteps  int
	ObstacleSteps int
	TilesVisited  int
	ElapsedTime   float64

	MinObstacleDistance float64
}

// GrassProportion returns the fraction of steps in the episode spent
// on the grass
func (e EpisodeMetrics) GrassProportion() float64 {
	if e.Steps == 0 {
		return 0
	}
	return float64(e.GrassSteps) / float64(e.Steps)
}

// AggregateMetrics accumulates EpisodeMetrics over many episodes
type AggregateMetrics struct {
	Episodes      int
	Scores        []float64
	TotalSteps    int
	GrassSteps    int
	ContactSteps  int
	ObstacleSteps int
	TotalTiles    int
	TotalTime     float64
}

// Fold adds the metrics of a finished episode to the aggregate
func (a *AggregateMetrics) Fold(e EpisodeMetrics) {
	a.Episodes++
	a.Scores = append(a.Scores, e.Score)
	a.TotalSteps += e.Steps
	a.GrassSteps += e.GrassSteps
	a.ContactSteps += e.ContactSteps
	a.ObstacleSteps += e.ObstacleSteps
	a.TotalTiles += e.TilesVisited
	a.TotalTime += e.ElapsedTime
}

// MeanTiles returns the mean number of tiles visited per episode
func (a AggregateMetrics) MeanTiles() float64 {
	if a.Episodes == 0 {
		return 0
	}
	return float64(a.TotalTiles) / float64(a.Episodes)
}

// MeanTime returns the mean simulated time per episode
func (a AggregateMetrics) MeanTime() float64 {
	if a.Episodes == 0 {
		return 0
	}
	return a.TotalTime / float64(a.Episodes)
}

// GrassProportion returns the fraction of all steps, across all
// episodes, which were spent on the grass
func (a AggregateMetrics) GrassProportion() float64 {
	if a.TotalSteps == 0 {
		return 0
	}
	return float64(a.GrassSteps) / float64(a.TotalSteps)
}

// MeanScore returns the mean episodic score
func (a AggregateMetrics) MeanScore() float64 {
	if len(a.Scores) == 0 {
		return 0
	}
	return stat.Mean(a.Scores, nil)
}

// ScoreStdErr returns the standard error of the mean episodic score,
// which is NaN for fewer than two episodes
func (a AggregateMetrics) ScoreStdErr() float64 {
	if len(a.Scores) < 2 {
		return math.NaN()
	}
	return stat.StdErr(stat.StdDev(a.Scores, nil), float64(len(a.Scores)))
}
