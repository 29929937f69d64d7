// Package wrappers implements wrappers around a BaseEnv
package wrappers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"

	env "github.com/samuelfneumann/psiracing/environment"
	"github.com/samuelfneumann/psiracing/environment/psi"
	ts "github.com/samuelfneumann/psiracing/timestep"
)

type state int

const (
	unstarted state = iota
	ready
	terminal
)

// Psi wraps a BaseEnv so that every episode is generated from a
// parameter Pair psi = [K, p] drawn from a psi.Sampler, and every
// observation bundles the image with the active Pair.
//
// On Reset, Psi samples a Pair, installs it in the BaseEnv, and then
// resets the BaseEnv so that the new track is generated with the
// sampled parameters. The Pair is cached for the whole episode, and
// each observation from Reset and Step is composed with it.
//
// Psi holds the BaseEnv rather than embedding it. Only the methods
// needed to evaluate policies are passed through.
type Psi struct {
	base     env.BaseEnv
	sampler  psi.Sampler
	composer *psi.Composer
	enders   []Ender

	pair     psi.Pair
	state    state
	lastStep ts.TimeStep
}

// NewPsi returns a new Psi environment wrapper. Enders, if given, may
// end episodes before the BaseEnv does.
func NewPsi(base env.BaseEnv, sampler psi.Sampler, composer *psi.Composer,
	enders ...Ender) (*Psi, error) {
	if base == nil {
		return nil, fmt.Errorf("newPsi: nil base environment: %w",
			env.ErrInvalidConfiguration)
	}
	if sampler == nil {
		return nil, fmt.Errorf("newPsi: nil sampler: %w",
			env.ErrInvalidConfiguration)
	}
	if composer == nil {
		return nil, fmt.Errorf("newPsi: nil composer: %w",
			env.ErrInvalidConfiguration)
	}

	return &Psi{
		base:     base,
		sampler:  sampler,
		composer: composer,
		enders:   enders,
		state:    unstarted,
	}, nil
}

// Reset samples new environment parameters, installs them in the
// BaseEnv, and resets the BaseEnv. The first TimeStep of the new
// episode is returned.
func (p *Psi) Reset() (ts.TimeStep, error) {
	// Any failure leaves the environment needing another Reset
	p.state = unstarted

	pair, err := p.sampler.Sample()
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: could not sample "+
			"environment parameters: %w", err)
	}

	p.base.SetParameters(pair.CurvatureRate, pair.ObstacleProbability)
	raw, err := p.base.Reset()
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: could not reset base "+
			"environment: %w", err)
	}

	obs, err := p.composer.Compose(raw, pair)
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %w", err)
	}

	p.pair = pair
	p.state = ready
	p.lastStep = ts.New(ts.First, 0, obs, 0, nil)

	return p.lastStep, nil
}

// Step takes one environmental step given action a and returns the
// next TimeStep and whether or not it is the last in the episode.
//
// Step returns an error wrapping environment.ErrInvalidState if called
// before the first Reset or after the episode has ended.
func (p *Psi) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	switch p.state {
	case unstarted:
		return ts.TimeStep{}, true, fmt.Errorf("step: environment must be "+
			"reset before stepping: %w", env.ErrInvalidState)

	case terminal:
		return ts.TimeStep{}, true, fmt.Errorf("step: episode has ended, "+
			"environment must be reset: %w", env.ErrInvalidState)
	}

	raw, reward, done, info, err := p.base.Step(a)
	if err != nil {
		p.state = unstarted
		return ts.TimeStep{}, true, fmt.Errorf("step: could not step base "+
			"environment: %w", err)
	}

	obs, err := p.composer.Compose(raw, p.pair)
	if err != nil {
		p.state = unstarted
		return ts.TimeStep{}, true, fmt.Errorf("step: %w", err)
	}

	step := ts.New(ts.Mid, reward, obs, p.lastStep.Number+1, info)
	if done {
		step.StepType = ts.Last
	}
	for _, ender := range p.enders {
		ender.End(&step)
	}

	if step.Last() {
		p.state = terminal
	}
	p.lastStep = step

	return step, step.Last(), nil
}

// Parameters returns the environment parameters of the current episode
func (p *Psi) Parameters() psi.Pair {
	return p.pair
}

// ObstacleCentroids returns the obstacle centroids of the current
// track, or nil if the BaseEnv does not implement
// environment.ObstacleMap
func (p *Psi) ObstacleCentroids() []r2.Vec {
	m, ok := p.base.(env.ObstacleMap)
	if !ok {
		return nil
	}
	return m.ObstacleCentroids()
}

// ChangeSet changes the set that environment parameters are sampled
// from, starting from the next call to Reset. Only a psi.UniformSampler
// supports changing sets.
func (p *Psi) ChangeSet(set psi.Set) error {
	u, ok := p.sampler.(*psi.UniformSampler)
	if !ok {
		return fmt.Errorf("changeSet: sampler %T has no parameter set: %w",
			p.sampler, env.ErrInvalidConfiguration)
	}
	u.ChangeSet(set)
	return nil
}

// Set returns the set that environment parameters are sampled from
func (p *Psi) Set() (psi.Set, error) {
	u, ok := p.sampler.(*psi.UniformSampler)
	if !ok {
		return nil, fmt.Errorf("set: sampler %T has no parameter set: %w",
			p.sampler, env.ErrInvalidConfiguration)
	}
	return u.Set(), nil
}

// Car returns the car of the BaseEnv
func (p *Psi) Car() env.Car {
	return p.base.Car()
}

// TilesVisited returns the number of tiles visited in the current
// episode
func (p *Psi) TilesVisited() int {
	return p.base.TilesVisited()
}

// ElapsedTime returns the simulated time elapsed in the current episode
func (p *Psi) ElapsedTime() float64 {
	return p.base.ElapsedTime()
}

// ObservationSpec returns the specification of the image observations
// of the BaseEnv
func (p *Psi) ObservationSpec() env.Spec {
	return p.base.ObservationSpec()
}

// ActionSpec returns the action specification of the BaseEnv
func (p *Psi) ActionSpec() env.Spec {
	return p.base.ActionSpec()
}

// Close closes the BaseEnv
func (p *Psi) Close() error {
	return p.base.Close()
}

// String returns a string representation of the Psi environment
func (p *Psi) String() string {
	return fmt.Sprintf("Psi: %v  |  Normalized: %v", p.pair,
		p.composer.Normalize())
}
