// Package store persists the results of evaluation runs
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/samuelfneumann/psiracing/experiment"
)

// Run is the result of a single evaluation run
type Run struct {
	ID        string
	CreatedAt time.Time

	// Config is the JSON encoded configuration the run was started with
	Config    json.RawMessage
	Aggregate experiment.AggregateMetrics
	Episodes  []experiment.EpisodeMetrics
}

// NewRun returns a new Run with a fresh ID. The config is JSON encoded
// and stored alongside the metrics.
func NewRun(config interface{}, agg experiment.AggregateMetrics,
	episodes []experiment.EpisodeMetrics) (Run, error) {
	payload, err := json.Marshal(config)
	if err != nil {
		return Run{}, fmt.Errorf("newRun: could not encode config: %w", err)
	}

	return Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Config:    payload,
		Aggregate: agg,
		Episodes:  append([]experiment.EpisodeMetrics(nil), episodes...),
	}, nil
}

// Store defines persistence operations for evaluation runs
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, bool, error)
	ListEpisodes(ctx context.Context, runID string) ([]experiment.EpisodeMetrics, bool, error)
}

// Recorder is an experiment.Tracker which collects the metrics of each
// episode so that they can be saved in a Run once the evaluation ends
type Recorder struct {
	episodes []experiment.EpisodeMetrics
}

// Track implements the experiment.Tracker interface
func (r *Recorder) Track(m experiment.EpisodeMetrics) {
	r.episodes = append(r.episodes, m)
}

// Save implements the experiment.Tracker interface. Episodes are
// persisted through a Store, so Save does nothing.
func (r *Recorder) Save() error { return nil }

// Episodes returns the episodes recorded so far
func (r *Recorder) Episodes() []experiment.EpisodeMetrics {
	return append([]experiment.EpisodeMetrics(nil), r.episodes...)
}
