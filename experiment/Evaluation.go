package experiment

import (
	"errors"
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/samuelfneumann/psiracing/agent"
	env "github.com/samuelfneumann/psiracing/environment"
	"github.com/samuelfneumann/psiracing/environment/contact"
	"github.com/samuelfneumann/psiracing/environment/psi"
	"github.com/samuelfneumann/psiracing/utils/progressbar"
)

// Evaluation runs a fixed policy on an Environment for a number of
// episodes, without learning.
//
// Before every action the car's contact with the track is classified,
// and the number of steps on the grass and on the track are counted.
// If the Environment implements environment.ObstacleMap, the distance
// from the car to the nearest obstacle is tracked as well. When
// an episode ends its metrics are logged, sent to each Tracker, and
// folded into the AggregateMetrics that Run returns.
//
// Episodes run until the Environment ends them. A policy which never
// finishes an episode blocks Run, so environments should be wrapped
// with a step limit when this is a concern.
type Evaluation struct {
	env        Environment
	policy     agent.Policy
	classifier contact.Classifier

	trackers []Tracker
	logger   *log.Logger
	progress *progressbar.ManualProgressBar
}

// Option configures an Evaluation
type Option func(*Evaluation)

// WithTrackers registers Trackers which are sent the metrics of each
// episode
func WithTrackers(trackers ...Tracker) Option {
	return func(e *Evaluation) {
		e.trackers = append(e.trackers, trackers...)
	}
}

// WithLogger sets the logger that episode scores and final metrics
// are printed to. By default the standard logger is used.
func WithLogger(logger *log.Logger) Option {
	return func(e *Evaluation) {
		e.logger = logger
	}
}

// WithProgress displays a progress bar which is incremented after each
// episode
func WithProgress(p *progressbar.ManualProgressBar) Option {
	return func(e *Evaluation) {
		e.progress = p
	}
}

// NewEvaluation returns a new Evaluation of policy p on environment e
func NewEvaluation(e Environment, p agent.Policy, c contact.Classifier,
	opts ...Option) (*Evaluation, error) {
	if e == nil {
		return nil, fmt.Errorf("newEvaluation: nil environment: %w",
			env.ErrInvalidConfiguration)
	}
	if p == nil {
		return nil, fmt.Errorf("newEvaluation: nil policy: %w",
			env.ErrInvalidConfiguration)
	}

	eval := &Evaluation{
		env:        e,
		policy:     p,
		classifier: c,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(eval)
	}

	return eval, nil
}

// Run runs numEpisodes episodes and returns the aggregated metrics.
// Any error ends the evaluation, and the metrics of all episodes which
// finished before the error are returned along with it.
func (e *Evaluation) Run(numEpisodes int) (AggregateMetrics, error) {
	var agg AggregateMetrics
	if numEpisodes <= 0 {
		return agg, fmt.Errorf("run: number of episodes must be positive "+
			"but got %v: %w", numEpisodes, env.ErrInvalidConfiguration)
	}

	for i := 0; i < numEpisodes; i++ {
		metrics, err := e.RunEpisode(i)
		if err != nil {
			return agg, fmt.Errorf("run: episode %v: %w", i, err)
		}
		agg.Fold(metrics)
		e.emit(metrics)
	}

	e.logger.Printf("mean tiles visited: %.2f  |  mean time: %.2f  |  "+
		"grass proportion: %.4f  |  mean score: %.2f ± %.2f",
		agg.MeanTiles(), agg.MeanTime(), agg.GrassProportion(),
		agg.MeanScore(), agg.ScoreStdErr())

	return agg, nil
}

// RunEpisode runs a single episode, numbered episode, and returns its
// metrics. The metrics are not sent to any Tracker.
func (e *Evaluation) RunEpisode(episode int) (EpisodeMetrics, error) {
	metrics := EpisodeMetrics{
		Episode:             episode,
		MinObstacleDistance: math.Inf(1),
	}

	step, err := e.env.Reset()
	if err != nil {
		return metrics, err
	}

	// Record the un-normalized parameters when the environment
	// exposes them
	if p, ok := e.env.(interface{ Parameters() psi.Pair }); ok {
		metrics.Psi = p.Parameters()
	} else {
		metrics.Psi = step.Observation.Psi
	}

	var centroids []r2.Vec
	if m, ok := e.env.(env.ObstacleMap); ok {
		centroids = m.ObstacleCentroids()
	}

	// Each state the policy acts in is classified, so the first state is
	// counted and the terminal state is not
	for !step.Last() {
		car := e.env.Car()
		switch e.classifier.ClassifyCar(car) {
		case contact.OnGrass:
			metrics.GrassSteps++

		case contact.OnObstacle:
			metrics.ObstacleSteps++
			metrics.ContactSteps++

		default:
			metrics.ContactSteps++
		}

		d, err := contact.NearestObstacleDistance(car.HullPosition(),
			centroids)
		if err != nil && !errors.Is(err, env.ErrEmptyInput) {
			return metrics, err
		}
		metrics.MinObstacleDistance = math.Min(metrics.MinObstacleDistance, d)

		action, err := e.policy.Predict(step.Observation)
		if err != nil {
			return metrics, fmt.Errorf("could not select action: %w", err)
		}

		step, _, err = e.env.Step(action)
		if err != nil {
			return metrics, err
		}

		metrics.Score += step.Reward
		metrics.Steps++
	}

	metrics.TilesVisited = e.env.TilesVisited()
	metrics.ElapsedTime = e.env.ElapsedTime()

	return metrics, nil
}

// emit reports the metrics of a finished episode
func (e *Evaluation) emit(m EpisodeMetrics) {
	e.logger.Printf("episode %d: score %.2f tiles %d time %.2f grass %d/%d "+
		"(%v)", m.Episode, m.Score, m.TilesVisited, m.ElapsedTime,
		m.GrassSteps, m.Steps, m.Psi)

	for _, t := range e.trackers {
		t.Track(m)
	}

	if e.progress != nil {
		e.progress.Increment()
		e.progress.SetStatus(fmt.Sprintf("score: %.2f", m.Score))
		e.progress.Display()
	}
}
