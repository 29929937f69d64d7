// Package agent defines the interface of policies which can be
// evaluated on a parameterized racing environment
package agent

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/psiracing/environment/psi"
)

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions given an observation
// which contains both the image of the environment and the environment
// parameters psi.
type Policy interface {
	Predict(obs psi.Observation) (*mat.VecDense, error)
}
