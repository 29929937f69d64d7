package experiment_test

import (
	"bytes"
	"errors"
	"log"
	"math"
	"strings"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"

	env "github.com/samuelfneumann/psiracing/environment"
	"github.com/samuelfneumann/psiracing/environment/contact"
	"github.com/samuelfneumann/psiracing/environment/psi"
	"github.com/samuelfneumann/psiracing/environment/wrappers"
	"github.com/samuelfneumann/psiracing/experiment"
	"github.com/samuelfneumann/psiracing/internal/envtest"
)

// constant always predicts the same action
type constant struct{}

func (constant) Predict(psi.Observation) (*mat.VecDense, error) {
	return mat.NewVecDense(3, []float64{0, 0.5, 0}), nil
}

// failing never predicts an action
type failing struct{}

func (failing) Predict(psi.Observation) (*mat.VecDense, error) {
	return nil, errors.New("no action")
}

// recorder records the order that episode metrics are tracked in
type recorder struct {
	episodes []int
	scores   []float64
	saved    bool
}

func (r *recorder) Track(m experiment.EpisodeMetrics) {
	r.episodes = append(r.episodes, m.Episode)
	r.scores = append(r.scores, m.Score)
}

func (r *recorder) Save() error {
	r.saved = true
	return nil
}

func newPsi(t *testing.T, base env.BaseEnv) *wrappers.Psi {
	t.Helper()
	set := psi.NewSet([][2]float64{{0.51, 0.09}})
	sampler := psi.NewUniformSampler(set, rand.NewSource(1))

	composer, err := psi.NewComposer(psi.DefaultDomain(),
		base.ObservationSpec(), false)
	if err != nil {
		t.Fatal(err)
	}

	p, err := wrappers.NewPsi(base, sampler, composer)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// firstGrass puts the car on the grass at the start of each episode
type firstGrass struct {
	*envtest.Env
}

func (f *firstGrass) Car() env.Car {
	if f.ElapsedTime() == 0 {
		return &envtest.Car{WheelList: envtest.Grass}
	}
	return f.Env.Car()
}

// grassFirst puts the car on the grass for the first n steps of each
// episode
func grassFirst(n int) func(int) []envtest.Wheel {
	return func(step int) []envtest.Wheel {
		if step <= n {
			return envtest.Grass
		}
		return envtest.Road
	}
}

func TestRunEpisodeGrassProportion(t *testing.T) {
	base := envtest.New(100, 1.0, grassFirst(30))
	e, err := experiment.NewEvaluation(newPsi(t, base), constant{},
		contact.NewClassifier(contact.AllWheels),
		experiment.WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	if err != nil {
		t.Fatal(err)
	}

	m, err := e.RunEpisode(0)
	if err != nil {
		t.Fatal(err)
	}

	if m.Steps != 100 {
		t.Errorf("steps: expected 100, got %v", m.Steps)
	}
	if m.GrassSteps != 30 {
		t.Errorf("grass steps: expected 30, got %v", m.GrassSteps)
	}
	if m.GrassSteps+m.ContactSteps != m.Steps {
		t.Errorf("grass + contact steps (%v + %v) != steps (%v)",
			m.GrassSteps, m.ContactSteps, m.Steps)
	}
	if !scalar.EqualWithinAbs(m.GrassProportion(), 0.30, 1e-12) {
		t.Errorf("grass proportion: expected 0.30, got %v",
			m.GrassProportion())
	}
	if !scalar.EqualWithinAbs(m.Score, 100, 1e-12) {
		t.Errorf("score: expected 100, got %v", m.Score)
	}
	if m.TilesVisited != 70 {
		t.Errorf("tiles visited: expected 70, got %v", m.TilesVisited)
	}
	if !scalar.EqualWithinAbs(m.ElapsedTime, 2.0, 1e-12) {
		t.Errorf("elapsed time: expected 2.0, got %v", m.ElapsedTime)
	}
	if m.Psi != (psi.Pair{CurvatureRate: 0.51, ObstacleProbability: 0.09}) {
		t.Errorf("psi: expected (0.51, 0.09), got %v", m.Psi)
	}
}

func TestRunEpisodeObstacles(t *testing.T) {
	script := func(step int) []envtest.Wheel {
		switch {
		case step%4 == 0:
			return envtest.Obstacle
		case step%4 == 1:
			return envtest.OneWheelOff
		default:
			return envtest.Road
		}
	}

	for _, policy := range []contact.GrassPolicy{contact.AllWheels,
		contact.AnyWheel} {
		base := envtest.New(20, 0, script)
		e, err := experiment.NewEvaluation(newPsi(t, base), constant{},
			contact.NewClassifier(policy),
			experiment.WithLogger(log.New(&bytes.Buffer{}, "", 0)))
		if err != nil {
			t.Fatal(err)
		}

		m, err := e.RunEpisode(0)
		if err != nil {
			t.Fatal(err)
		}

		// States after steps 4, 8, 12, and 16 are classified, while the
		// terminal state after step 20 is not
		if m.ObstacleSteps != 4 {
			t.Errorf("%v: obstacle steps: expected 4, got %v", policy,
				m.ObstacleSteps)
		}
		if m.ObstacleSteps > m.ContactSteps {
			t.Errorf("%v: obstacle steps %v > contact steps %v", policy,
				m.ObstacleSteps, m.ContactSteps)
		}
		if m.GrassSteps+m.ContactSteps != m.Steps {
			t.Errorf("%v: grass + contact steps (%v + %v) != steps (%v)",
				policy, m.GrassSteps, m.ContactSteps, m.Steps)
		}

		wantGrass := 0
		if policy == contact.AnyWheel {
			wantGrass = 5
		}
		if m.GrassSteps != wantGrass {
			t.Errorf("%v: grass steps: expected %v, got %v", policy,
				wantGrass, m.GrassSteps)
		}
	}
}

func TestRunEpisodeClassifiesBeforeActing(t *testing.T) {
	// Only the terminal state is on the grass
	base := envtest.New(10, 1.0, func(step int) []envtest.Wheel {
		if step == 10 {
			return envtest.Grass
		}
		return envtest.Road
	})
	e, err := experiment.NewEvaluation(newPsi(t, base), constant{},
		contact.NewClassifier(contact.AllWheels),
		experiment.WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	if err != nil {
		t.Fatal(err)
	}

	m, err := e.RunEpisode(0)
	if err != nil {
		t.Fatal(err)
	}
	if m.GrassSteps != 0 || m.ContactSteps != 10 {
		t.Errorf("expected 0 grass and 10 contact steps, got %v and %v",
			m.GrassSteps, m.ContactSteps)
	}

	// Only the first state is on the grass
	base.Script = func(int) []envtest.Wheel { return envtest.Road }
	first := &firstGrass{Env: base}
	e, err = experiment.NewEvaluation(newPsi(t, first), constant{},
		contact.NewClassifier(contact.AllWheels),
		experiment.WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	if err != nil {
		t.Fatal(err)
	}

	m, err = e.RunEpisode(0)
	if err != nil {
		t.Fatal(err)
	}
	if m.GrassSteps != 1 || m.ContactSteps != 9 {
		t.Errorf("expected 1 grass and 9 contact steps, got %v and %v",
			m.GrassSteps, m.ContactSteps)
	}
}

func TestRunEpisodeObstacleDistance(t *testing.T) {
	// The car sits at (i, 0) after step i
	base := envtest.New(5, 0, nil)
	base.Obstacles = []r2.Vec{{X: 10, Y: 0}, {X: -20, Y: 0}}
	e, err := experiment.NewEvaluation(newPsi(t, base), constant{},
		contact.NewClassifier(contact.AllWheels),
		experiment.WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	if err != nil {
		t.Fatal(err)
	}

	m, err := e.RunEpisode(0)
	if err != nil {
		t.Fatal(err)
	}
	// The car is at x = 4 in the last state it acts in
	if !scalar.EqualWithinAbs(m.MinObstacleDistance, 6, 1e-12) {
		t.Errorf("expected minimum obstacle distance 6, got %v",
			m.MinObstacleDistance)
	}

	// Without obstacles the distance is undefined
	base.Obstacles = nil
	m, err = e.RunEpisode(1)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(m.MinObstacleDistance, 1) {
		t.Errorf("expected +Inf obstacle distance, got %v",
			m.MinObstacleDistance)
	}
}

func TestRunEmitsEachEpisode(t *testing.T) {
	base := envtest.New(10, 0.5, grassFirst(5))
	var buf bytes.Buffer
	rec := &recorder{}

	e, err := experiment.NewEvaluation(newPsi(t, base), constant{},
		contact.NewClassifier(contact.AllWheels),
		experiment.WithTrackers(rec),
		experiment.WithLogger(log.New(&buf, "", 0)))
	if err != nil {
		t.Fatal(err)
	}

	agg, err := e.Run(3)
	if err != nil {
		t.Fatal(err)
	}

	if len(rec.episodes) != 3 {
		t.Fatalf("expected 3 tracked episodes, got %v", len(rec.episodes))
	}
	for i, ep := range rec.episodes {
		if ep != i {
			t.Errorf("episode %v tracked out of order as %v", i, ep)
		}
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 3 episode lines and a summary, got %v lines",
			len(lines))
	}
	want := "episode 1: score 5.00 tiles 5 time 0.20 grass 5/10"
	if !strings.HasPrefix(lines[1], want) {
		t.Errorf("episode line: expected prefix %q, got %q", want, lines[1])
	}

	summary := "mean score: 5.00 ± 0.00"
	if !strings.Contains(lines[3], summary) {
		t.Errorf("summary line: expected %q in %q", summary, lines[3])
	}

	if agg.Episodes != 3 || len(agg.Scores) != 3 {
		t.Errorf("expected 3 aggregated episodes, got %v", agg.Episodes)
	}
	if !scalar.EqualWithinAbs(agg.GrassProportion(), 0.5, 1e-12) {
		t.Errorf("aggregate grass proportion: expected 0.5, got %v",
			agg.GrassProportion())
	}
	if !scalar.EqualWithinAbs(agg.MeanTiles(), 5, 1e-12) {
		t.Errorf("mean tiles: expected 5, got %v", agg.MeanTiles())
	}
	if !scalar.EqualWithinAbs(agg.MeanScore(), 5, 1e-12) {
		t.Errorf("mean score: expected 5, got %v", agg.MeanScore())
	}
	if len(base.Resets) != 3 {
		t.Errorf("expected 3 resets, got %v", len(base.Resets))
	}
}

func TestRunErrors(t *testing.T) {
	base := envtest.New(10, 0, nil)
	quiet := experiment.WithLogger(log.New(&bytes.Buffer{}, "", 0))

	e, err := experiment.NewEvaluation(newPsi(t, base), constant{},
		contact.Classifier{}, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Run(0); !errors.Is(err, env.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for 0 episodes, got %v",
			err)
	}

	// Environment errors abort the run and carry the episode index
	resetErr := errors.New("simulator crashed")
	base.ResetErr = resetErr
	_, err = e.Run(2)
	if !errors.Is(err, resetErr) {
		t.Errorf("expected reset error, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "episode 0") {
		t.Errorf("expected error to name episode 0, got %v", err)
	}

	// Policy errors abort the run
	base.ResetErr = nil
	e, err = experiment.NewEvaluation(newPsi(t, base), failing{},
		contact.Classifier{}, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Run(1); err == nil {
		t.Error("expected policy error")
	}

	if _, err := experiment.NewEvaluation(nil, constant{},
		contact.Classifier{}); !errors.Is(err, env.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for nil environment, "+
			"got %v", err)
	}
}

func TestAggregateMetrics(t *testing.T) {
	var agg experiment.AggregateMetrics
	if agg.MeanScore() != 0 || agg.GrassProportion() != 0 {
		t.Error("empty aggregate should have zero means")
	}

	agg.Fold(experiment.EpisodeMetrics{Score: 1, Steps: 10, GrassSteps: 2,
		ContactSteps: 8, TilesVisited: 4, ElapsedTime: 1})
	agg.Fold(experiment.EpisodeMetrics{Score: 3, Steps: 30, GrassSteps: 8,
		ContactSteps: 22, TilesVisited: 6, ElapsedTime: 3})

	if !scalar.EqualWithinAbs(agg.MeanScore(), 2, 1e-12) {
		t.Errorf("mean score: expected 2, got %v", agg.MeanScore())
	}
	if !scalar.EqualWithinAbs(agg.GrassProportion(), 0.25, 1e-12) {
		t.Errorf("grass proportion: expected 0.25, got %v",
			agg.GrassProportion())
	}
	if !scalar.EqualWithinAbs(agg.MeanTime(), 2, 1e-12) {
		t.Errorf("mean time: expected 2, got %v", agg.MeanTime())
	}
	if !scalar.EqualWithinAbs(agg.MeanTiles(), 5, 1e-12) {
		t.Errorf("mean tiles: expected 5, got %v", agg.MeanTiles())
	}
}
