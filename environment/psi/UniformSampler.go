package psi

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"

	env "github.com/samuelfneumann/psiracing/environment"
)

// UniformSampler samples entire rows [K, p] uniformly from a Set. This
// is the sampler used to randomize parameters during training.
//
// The Set can be replaced between episodes using ChangeSet. A Pair
// which has already been sampled is unaffected by a change of Set.
type UniformSampler struct {
	set     Set
	src     rand.Source
	indexer distuv.Categorical
}

// NewUniformSampler returns a new UniformSampler over set which draws
// random numbers from src. The set is copied.
func NewUniformSampler(set Set, src rand.Source) *UniformSampler {
	u := &UniformSampler{src: src}
	u.ChangeSet(set)
	return u
}

// Sample returns a Pair drawn uniformly from the current Set
func (u *UniformSampler) Sample() (Pair, error) {
	if len(u.set) == 0 {
		return Pair{}, fmt.Errorf("sample: cannot sample from an empty "+
			"parameter set: %w", env.ErrInvalidConfiguration)
	}
	return u.set[int(u.indexer.Rand())], nil
}

// ChangeSet replaces the Set that Pairs are sampled from. An empty Set
// is accepted, but Sample will return an error until a non-empty Set
// is installed.
func (u *UniformSampler) ChangeSet(set Set) {
	u.set = set.Clone()
	if len(u.set) > 0 {
		u.indexer = newIndexer(len(u.set), u.src)
	}
}

// Set returns a copy of the Set that Pairs are sampled from
func (u *UniformSampler) Set() Set {
	return u.set.Clone()
}
