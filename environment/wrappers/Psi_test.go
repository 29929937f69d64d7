package wrappers

import (
	"errors"
	"testing"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"

	env "github.com/samuelfneumann/psiracing/environment"
	"github.com/samuelfneumann/psiracing/environment/psi"
	"github.com/samuelfneumann/psiracing/internal/envtest"
)

func newPsi(t *testing.T, base *envtest.Env, set psi.Set, normalize bool,
	enders ...Ender) *Psi {
	t.Helper()
	composer, err := psi.NewComposer(psi.DefaultDomain(),
		base.ObservationSpec(), normalize)
	if err != nil {
		t.Fatal(err)
	}
	sampler := psi.NewUniformSampler(set, rand.NewSource(1))

	p, err := NewPsi(base, sampler, composer, enders...)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func action() *mat.VecDense {
	return mat.NewVecDense(3, []float64{0, 0.5, 0})
}

func TestPsiStepBeforeReset(t *testing.T) {
	p := newPsi(t, envtest.New(3, 1, nil), psi.Set{{CurvatureRate: 0.31, ObstacleProbability: 0.05}}, false)

	if _, _, err := p.Step(action()); !errors.Is(err, env.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestPsiStepAfterTerminal(t *testing.T) {
	p := newPsi(t, envtest.New(2, 1, nil), psi.Set{{CurvatureRate: 0.31, ObstacleProbability: 0.05}}, false)

	if _, err := p.Reset(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, _, err := p.Step(action()); err != nil {
			t.Fatal(err)
		}
	}

	if _, _, err := p.Step(action()); !errors.Is(err, env.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState after episode end, got %v", err)
	}

	// Reset is always valid from a terminal state
	if _, err := p.Reset(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := p.Step(action()); err != nil {
		t.Errorf("step after reset: %v", err)
	}
}

func TestPsiResetInstallsParameters(t *testing.T) {
	base := envtest.New(3, 1, nil)
	want := psi.Pair{CurvatureRate: 0.61, ObstacleProbability: 0.11}
	p := newPsi(t, base, psi.Set{want}, false)

	step, err := p.Reset()
	if err != nil {
		t.Fatal(err)
	}

	if len(base.Resets) != 1 || base.Resets[0] != [2]float64{0.61, 0.11} {
		t.Fatalf("parameters at base reset: want [[0.61 0.11]], got %v",
			base.Resets)
	}
	if !step.First() || step.Number != 0 {
		t.Errorf("expected first timestep, got %v", step)
	}
	if step.Observation.Psi != want {
		t.Errorf("reset observation psi: want %v, got %v", want,
			step.Observation.Psi)
	}
	if p.Parameters() != want {
		t.Errorf("parameters: want %v, got %v", want, p.Parameters())
	}
}

func TestPsiStepComposesWithEpisodeParameters(t *testing.T) {
	base := envtest.New(3, 1.5, nil)
	p := newPsi(t, base, psi.Set{{CurvatureRate: 0.51, ObstacleProbability: 0.09}}, true)

	if _, err := p.Reset(); err != nil {
		t.Fatal(err)
	}

	// Changing the set mid-episode must not change the episode's psi
	if err := p.ChangeSet(psi.Set{{CurvatureRate: 0.71, ObstacleProbability: 0.13}}); err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 3; i++ {
		step, done, err := p.Step(action())
		if err != nil {
			t.Fatal(err)
		}
		if step.Number != i {
			t.Errorf("step number: want %v, got %v", i, step.Number)
		}
		if step.Reward != 1.5 {
			t.Errorf("reward: want 1.5, got %v", step.Reward)
		}
		if done != (i == 3) || step.Last() != done {
			t.Errorf("step %v: unexpected done %v (%v)", i, done, step)
		}
		if step.Info["step"] != i {
			t.Errorf("info not passed through: %v", step.Info)
		}

		got := step.Observation.PsiVec().RawVector().Data
		if !floats.EqualApprox(got, []float64{0.5, 0.5}, 1e-12) {
			t.Errorf("normalized psi: want [0.5 0.5], got %v", got)
		}

		img := step.Observation.Image.Data().([]float64)
		if !scalar.EqualWithinAbs(img[0], float64(i)/255, 1e-12) {
			t.Errorf("normalized image: want %v, got %v", float64(i)/255,
				img[0])
		}
	}

	// The new set is used on the next reset
	step, err := p.Reset()
	if err != nil {
		t.Fatal(err)
	}
	if base.Resets[1] != [2]float64{0.71, 0.13} {
		t.Errorf("second reset parameters: want [0.71 0.13], got %v",
			base.Resets[1])
	}
	if !floats.EqualApprox(step.Observation.PsiVec().RawVector().Data,
		[]float64{1, 1}, 1e-12) {
		t.Errorf("normalized psi: want [1 1], got %v", step.Observation.Psi)
	}
}

func TestPsiDoesNotAliasBaseImage(t *testing.T) {
	base := envtest.New(3, 1, nil)
	p := newPsi(t, base, psi.Set{{CurvatureRate: 0.31, ObstacleProbability: 0.05}}, false)

	if _, err := p.Reset(); err != nil {
		t.Fatal(err)
	}
	step, _, err := p.Step(action())
	if err != nil {
		t.Fatal(err)
	}

	base.LastImage().Data().([]float64)[0] = 100
	if step.Observation.Image.Data().([]float64)[0] != 1 {
		t.Error("observation image aliases the base environment image")
	}
}

func TestPsiErrors(t *testing.T) {
	base := envtest.New(3, 1, nil)
	p := newPsi(t, base, psi.Set{}, false)

	if _, err := p.Reset(); !errors.Is(err, env.ErrInvalidConfiguration) {
		t.Errorf("empty set: expected ErrInvalidConfiguration, got %v", err)
	}
	if len(base.Resets) != 0 {
		t.Error("base environment should not be reset without parameters")
	}

	resetErr := errors.New("no track")
	base.ResetErr = resetErr
	if err := p.ChangeSet(psi.Set{{CurvatureRate: 0.31, ObstacleProbability: 0.05}}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Reset(); !errors.Is(err, resetErr) {
		t.Errorf("expected base reset error, got %v", err)
	}
	if _, _, err := p.Step(action()); !errors.Is(err, env.ErrInvalidState) {
		t.Errorf("step after failed reset: expected ErrInvalidState, got %v",
			err)
	}

	base.ResetErr = nil
	stepErr := errors.New("physics exploded")
	base.StepErr = stepErr
	if _, err := p.Reset(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := p.Step(action()); !errors.Is(err, stepErr) {
		t.Errorf("expected base step error, got %v", err)
	}
}

func TestPsiStepLimit(t *testing.T) {
	p := newPsi(t, envtest.New(100, 1, nil), psi.Set{{CurvatureRate: 0.31, ObstacleProbability: 0.05}}, false,
		NewStepLimit(5))

	if _, err := p.Reset(); err != nil {
		t.Fatal(err)
	}

	steps := 0
	for done := false; !done; {
		var err error
		_, done, err = p.Step(action())
		if err != nil {
			t.Fatal(err)
		}
		steps++
	}

	if steps != 5 {
		t.Errorf("expected the episode to be cut off after 5 steps, got %v",
			steps)
	}
}

func TestPsiChangeSetGridSampler(t *testing.T) {
	base := envtest.New(3, 1, nil)
	composer, err := psi.NewComposer(psi.DefaultDomain(),
		base.ObservationSpec(), false)
	if err != nil {
		t.Fatal(err)
	}
	grid, err := psi.NewGridSampler(psi.EvalCurvatureRates,
		psi.EvalObstacleProbabilities, psi.Both,
		psi.DefaultPinned(psi.DefaultDomain()), rand.NewSource(1))
	if err != nil {
		t.Fatal(err)
	}

	p, err := NewPsi(base, grid, composer)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.ChangeSet(psi.Set{{CurvatureRate: 0.31, ObstacleProbability: 0.05}}); !errors.Is(err,
		env.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
	if _, err := p.Set(); !errors.Is(err, env.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestPsiObstacleCentroids(t *testing.T) {
	base := envtest.New(3, 1, nil)
	base.Obstacles = []r2.Vec{{X: 1, Y: 2}, {X: -3, Y: 4}}
	p := newPsi(t, base, psi.Set{{CurvatureRate: 0.31, ObstacleProbability: 0.05}}, false)

	got := p.ObstacleCentroids()
	if len(got) != 2 || got[0] != base.Obstacles[0] ||
		got[1] != base.Obstacles[1] {
		t.Errorf("expected centroids %v, got %v", base.Obstacles, got)
	}

	// A BaseEnv without an obstacle map reports no obstacles
	composer, err := psi.NewComposer(psi.DefaultDomain(),
		base.ObservationSpec(), false)
	if err != nil {
		t.Fatal(err)
	}
	hidden := struct{ env.BaseEnv }{base}
	q, err := NewPsi(hidden, psi.NewUniformSampler(psi.Set{{CurvatureRate: 0.31, ObstacleProbability: 0.05}},
		rand.NewSource(1)), composer)
	if err != nil {
		t.Fatal(err)
	}
	if got := q.ObstacleCentroids(); got != nil {
		t.Errorf("expected no centroids, got %v", got)
	}
}
