package wrappers

import ts "github.com/samuelfneumann/psiracing/timestep"

// Ender determines whether an episode should end at a TimeStep. If so,
// End changes the StepType of the TimeStep to timestep.Last.
type Ender interface {
	End(*ts.TimeStep) bool
}

// StepLimit implements the Ender interface to end episodes at specific
// timestep limits
type StepLimit struct {
	episodeSteps int
}

// NewStepLimit creates and returns a new step limit
func NewStepLimit(episodeSteps int) StepLimit {
	return StepLimit{episodeSteps}
}

// End determines whether or not the current episode should be ended,
// returning a boolean to indicate episode termination. If the episode
// should be ended End() will modify the timestep so that its StepType
// field is timestep.Last
func (s StepLimit) End(t *ts.TimeStep) bool {
	if t.Number >= s.episodeSteps {
		t.StepType = ts.Last
		return true
	}
	return false
}
