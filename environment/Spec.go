package environment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SpecType determines what kind of specification a Spec is. A Spec can
// specify the layout of an action or an observation
type SpecType int

const (
	Action SpecType = iota
	Observation
)

func (s SpecType) String() string {
	switch s {
	case Action:
		return "Action"
	default:
		return "Observation"
	}
}

// Cardinality determines the cardinality of a number (discrete or continuous)
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Spec implements an environment specification, which tells the type,
// shape, and bounds of an action or observation in an environment.
//
// Bounds are given along the last axis of Shape. For an H×W×C image
// observation, LowerBound and UpperBound therefore hold one value per
// channel. For an action vector of length N they hold one value per
// action dimension.
type Spec struct {
	Shape      []int
	Type       SpecType
	LowerBound mat.Vector
	UpperBound mat.Vector
	Cardinality
}

// NewSpec constructs a new environment specification. The shape
// argument outlines the shape of the data described by the
// specification, and the bounds must have one entry for each element
// of the last axis of shape.
func NewSpec(shape []int, t SpecType, lowerBound, upperBound mat.Vector,
	cardinality Cardinality) (Spec, error) {
	if len(shape) == 0 {
		return Spec{}, fmt.Errorf("newSpec: shape must have at least one "+
			"axis: %w", ErrInvalidConfiguration)
	}

	last := shape[len(shape)-1]
	if lowerBound.Len() != last {
		return Spec{}, fmt.Errorf("newSpec: last axis length %v must match "+
			"lower bounds length %v: %w", last, lowerBound.Len(),
			ErrInvalidConfiguration)
	}
	if upperBound.Len() != last {
		return Spec{}, fmt.Errorf("newSpec: last axis length %v must match "+
			"upper bounds length %v: %w", last, upperBound.Len(),
			ErrInvalidConfiguration)
	}

	s := make([]int, len(shape))
	copy(s, shape)
	return Spec{s, t, lowerBound, upperBound, cardinality}, nil
}

// Channels returns the length of the last axis of the spec
func (s Spec) Channels() int {
	if len(s.Shape) == 0 {
		return 0
	}
	return s.Shape[len(s.Shape)-1]
}
