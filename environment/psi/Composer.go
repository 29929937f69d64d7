package psi

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"

	env "github.com/samuelfneumann/psiracing/environment"
)

// Observation bundles the image observed from a BaseEnv with the
// environment parameters that generated the current episode
type Observation struct {
	Image *tensor.Dense
	Psi   Pair
}

// PsiVec returns the environment parameters of the observation as the
// vector [K, p]
func (o Observation) PsiVec() *mat.VecDense {
	return o.Psi.Vec()
}

// Composer composes raw H×W×C images and environment parameters into
// Observations, optionally normalizing both to [0, 1].
//
// Image normalization uses the per-channel bounds of the image
// specification given at construction. Parameter normalization uses
// the Domain given at construction, and not the bounds of whichever
// Set is currently being sampled from.
type Composer struct {
	domain    Domain
	normalize bool

	// Per-channel image bounds, low and (high - low)
	low   []float64
	width []float64
}

// NewComposer returns a new Composer. If normalize is false, the
// domain and image specification are not used and are not validated.
func NewComposer(domain Domain, imageSpec env.Spec,
	normalize bool) (*Composer, error) {
	c := &Composer{domain: domain, normalize: normalize}
	if !normalize {
		return c, nil
	}

	if err := domain.Validate(); err != nil {
		return nil, fmt.Errorf("newComposer: %w", err)
	}

	if imageSpec.LowerBound == nil || imageSpec.UpperBound == nil {
		return nil, fmt.Errorf("newComposer: image specification has no "+
			"bounds: %w", env.ErrInvalidConfiguration)
	}
	if len(imageSpec.Shape) != 3 {
		return nil, fmt.Errorf("newComposer: image specification must "+
			"have shape H×W×C but got %v: %w", imageSpec.Shape,
			env.ErrInvalidConfiguration)
	}
	channels := imageSpec.Channels()
	if imageSpec.LowerBound.Len() != channels ||
		imageSpec.UpperBound.Len() != channels {
		return nil, fmt.Errorf("newComposer: %v channels but %v lower and "+
			"%v upper bounds: %w", channels, imageSpec.LowerBound.Len(),
			imageSpec.UpperBound.Len(), env.ErrInvalidConfiguration)
	}

	c.low = make([]float64, channels)
	c.width = make([]float64, channels)
	for i := 0; i < channels; i++ {
		low, high := imageSpec.LowerBound.AtVec(i), imageSpec.UpperBound.AtVec(i)
		if high <= low {
			return nil, fmt.Errorf("newComposer: channel %v has empty "+
				"bounds [%v, %v]: %w", i, low, high,
				env.ErrInvalidConfiguration)
		}
		c.low[i] = low
		c.width[i] = high - low
	}

	return c, nil
}

// Normalize returns whether the Composer normalizes observations
func (c *Composer) Normalize() bool {
	return c.normalize
}

// Compose composes the raw image and the environment parameters into
// an Observation.
//
// The raw image is never modified, and the returned Observation never
// shares memory with it. The returned image always has Dtype Float64,
// even when normalization is off, so uint8 and float32 images are
// converted to float64 without being rescaled.
func (c *Composer) Compose(raw *tensor.Dense, pair Pair) (Observation, error) {
	if raw == nil {
		return Observation{}, fmt.Errorf("compose: nil image: %w",
			env.ErrInvalidConfiguration)
	}

	shape := raw.Shape().Clone()
	if shape.Dims() != 3 {
		return Observation{}, fmt.Errorf("compose: image must have shape "+
			"H×W×C but got %v: %w", shape, env.ErrInvalidConfiguration)
	}

	img, err := float64Copy(raw)
	if err != nil {
		return Observation{}, fmt.Errorf("compose: %w", err)
	}

	if c.normalize {
		channels := shape[2]
		if channels != len(c.low) {
			return Observation{}, fmt.Errorf("compose: image has %v "+
				"channels but bounds are given for %v: %w", channels,
				len(c.low), env.ErrInvalidConfiguration)
		}

		// Images are laid out row-major, so the channel is the
		// fastest-changing index
		for i := range img {
			ch := i % channels
			img[i] = (img[i] - c.low[ch]) / c.width[ch]
		}
		pair = c.domain.Normalize(pair)
	}

	image := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(img))
	return Observation{Image: image, Psi: pair}, nil
}

// float64Copy returns a copy of the backing data of t as float64
func float64Copy(t *tensor.Dense) ([]float64, error) {
	switch data := t.Data().(type) {
	case []float64:
		return append([]float64(nil), data...), nil

	case []float32:
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
		return out, nil

	case float64:
		// Scalar-equivalent tensors return their single element
		return []float64{data}, nil

	case []uint8:
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
		return out, nil
	}

	return nil, fmt.Errorf("unsupported image data type %v: %w", t.Dtype(),
		env.ErrInvalidConfiguration)
}
