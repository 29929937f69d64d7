package psi

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler draws the environment parameters for a single episode
type Sampler interface {
	Sample() (Pair, error)
}

// newIndexer returns a categorical distribution which samples indices
// uniformly from (0, 1, 2, ... n-1). The argument n must be positive.
func newIndexer(n int, src rand.Source) distuv.Categorical {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1.0 / float64(n)
	}
	return distuv.NewCategorical(weights, src)
}
