package random

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/psiracing/environment"
	"github.com/samuelfneumann/psiracing/environment/psi"
	"github.com/samuelfneumann/psiracing/internal/envtest"
)

func TestPredict(t *testing.T) {
	spec := envtest.New(1, 0, nil).ActionSpec()
	p, err := New(spec, DefaultGas, DefaultBrake, 12)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 100; i++ {
		a, err := p.Predict(psi.Observation{})
		if err != nil {
			t.Fatal(err)
		}
		if a.Len() != ActionDims {
			t.Fatalf("expected %v action dimensions, got %v", ActionDims,
				a.Len())
		}
		if s := a.AtVec(Steer); s < -1 || s > 1 {
			t.Errorf("steering %v outside of bounds", s)
		}
		if a.AtVec(Gas) != 0.5 || a.AtVec(Brake) != 0 {
			t.Errorf("expected gas 0.5 and brake 0, got %v", a.RawVector().Data)
		}
	}
}

func TestPredictClipsFixedActions(t *testing.T) {
	spec := envtest.New(1, 0, nil).ActionSpec()
	p, err := New(spec, 2, -1, 12)
	if err != nil {
		t.Fatal(err)
	}

	a, _ := p.Predict(psi.Observation{})
	if a.AtVec(Gas) != 1 || a.AtVec(Brake) != 0 {
		t.Errorf("expected gas and brake clipped to [1, 0], got %v",
			a.RawVector().Data)
	}
}

func TestNewInvalid(t *testing.T) {
	obsSpec := envtest.New(1, 0, nil).ObservationSpec()
	if _, err := New(obsSpec, DefaultGas, DefaultBrake, 1); !errors.Is(err,
		env.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}

	twoDims, err := env.NewSpec([]int{2}, env.Action, mat.NewVecDense(2, nil),
		mat.NewVecDense(2, []float64{1, 1}), env.Continuous)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(twoDims, DefaultGas, DefaultBrake, 1); !errors.Is(err,
		env.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}
