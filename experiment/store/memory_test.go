package store

import (
	"context"
	"math"
	"testing"

	"github.com/samuelfneumann/psiracing/environment/psi"
	"github.com/samuelfneumann/psiracing/experiment"
)

func testRun(t *testing.T) Run {
	t.Helper()

	rec := &Recorder{}
	var agg experiment.AggregateMetrics
	for i := 0; i < 3; i++ {
		m := experiment.EpisodeMetrics{
			Episode:      i,
			Psi:          psi.Pair{CurvatureRate: 0.51, ObstacleProbability: 0.09},
			Score:        float64(10 * i),
			Steps:        10,
			GrassSteps:   i,
			ContactSteps: 10 - i,

			MinObstacleDistance: float64(i),
		}
		if i == 0 {
			m.MinObstacleDistance = math.Inf(1)
		}
		rec.Track(m)
		agg.Fold(m)
	}

	run, err := NewRun(map[string]int{"episodes": 3}, agg, rec.Episodes())
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	return run
}

func TestMemoryStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	run := testRun(t)
	if run.ID == "" {
		t.Fatal("expected run id")
	}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}

	output, ok, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted run")
	}
	if output.Aggregate.Episodes != 3 || len(output.Aggregate.Scores) != 3 {
		t.Fatalf("unexpected aggregate: %+v", output.Aggregate)
	}
	if string(output.Config) != `{"episodes":3}` {
		t.Fatalf("unexpected config: %s", output.Config)
	}

	episodes, ok, err := store.ListEpisodes(ctx, run.ID)
	if err != nil {
		t.Fatalf("list episodes: %v", err)
	}
	if !ok || len(episodes) != 3 {
		t.Fatalf("unexpected episodes: %+v", episodes)
	}
	for i, ep := range episodes {
		if ep.Episode != i || ep.Score != float64(10*i) {
			t.Fatalf("unexpected episode %d: %+v", i, ep)
		}
	}

	// Stored runs are not aliased by the caller
	run.Episodes[0].Score = -1
	episodes, _, _ = store.ListEpisodes(ctx, run.ID)
	if episodes[0].Score != 0 {
		t.Fatalf("stored episode was modified through caller: %+v", episodes[0])
	}
}

func TestMemoryStoreMissingRun(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing run, got ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.ListEpisodes(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing episodes, got ok=%v err=%v", ok, err)
	}
	if err := store.SaveRun(ctx, Run{}); err == nil {
		t.Fatal("expected error saving run without id")
	}
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveRun(context.Background(), testRun(t)); err == nil {
		t.Fatal("expected error saving to uninitialized store")
	}
}
