package store

import (
	"context"
	"errors"
	"sync"

	"github.com/samuelfneumann/psiracing/experiment"
)

// MemoryStore is a Store which keeps runs in memory
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]Run
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]Run)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	if run.ID == "" {
		return errors.New("run id is required")
	}
	s.runs[run.ID] = cloneRun(run)
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return Run{}, false, nil
	}
	return cloneRun(run), true, nil
}

func (s *MemoryStore) ListEpisodes(_ context.Context, runID string) ([]experiment.EpisodeMetrics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]experiment.EpisodeMetrics(nil), run.Episodes...), true, nil
}

func cloneRun(run Run) Run {
	run.Config = append([]byte(nil), run.Config...)
	run.Aggregate.Scores = append([]float64(nil), run.Aggregate.Scores...)
	run.Episodes = append([]experiment.EpisodeMetrics(nil), run.Episodes...)
	return run
}
