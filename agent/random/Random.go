// Package random implements a baseline policy which steers randomly
package random

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	env "github.com/samuelfneumann/psiracing/environment"
	"github.com/samuelfneumann/psiracing/environment/psi"
	"github.com/samuelfneumann/psiracing/utils/floatutils"
)

const (
	// Indices of each action dimension
	Steer int = iota
	Gas
	Brake

	ActionDims
)

const (
	DefaultGas   float64 = 0.5
	DefaultBrake float64 = 0.0
)

// Policy is a baseline policy which ignores its observations. It steers
// uniformly at random within the action bounds while holding gas and
// brake fixed.
type Policy struct {
	steer distuv.Uniform
	gas   float64
	brake float64
}

// New returns a new random Policy for an environment with the argument
// action specification. Gas and brake are clipped to their bounds.
func New(actionSpec env.Spec, gas, brake float64, seed uint64) (*Policy,
	error) {
	if actionSpec.Type != env.Action {
		return nil, fmt.Errorf("new: expected action spec but got %v: %w",
			actionSpec.Type, env.ErrInvalidConfiguration)
	}
	if actionSpec.LowerBound == nil || actionSpec.UpperBound == nil ||
		actionSpec.LowerBound.Len() != ActionDims ||
		actionSpec.UpperBound.Len() != ActionDims {
		return nil, fmt.Errorf("new: actions must be [steer, gas, brake]: %w",
			env.ErrInvalidConfiguration)
	}

	low, high := actionSpec.LowerBound, actionSpec.UpperBound
	return &Policy{
		steer: distuv.Uniform{
			Min: low.AtVec(Steer),
			Max: high.AtVec(Steer),
			Src: rand.NewSource(seed),
		},
		gas:   floatutils.Clip(gas, low.AtVec(Gas), high.AtVec(Gas)),
		brake: floatutils.Clip(brake, low.AtVec(Brake), high.AtVec(Brake)),
	}, nil
}

// Predict implements the agent.Policy interface
func (p *Policy) Predict(psi.Observation) (*mat.VecDense, error) {
	return mat.NewVecDense(ActionDims, []float64{
		p.steer.Rand(),
		p.gas,
		p.brake,
	}), nil
}
