package environment

import "errors"

var (
	// ErrInvalidConfiguration is returned when a sampler, composer, or
	// experiment is configured with unusable values, for example an
	// empty parameter set
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidState is returned when an environment is used out of
	// order, for example stepping before the first reset
	ErrInvalidState = errors.New("invalid state")

	// ErrEmptyInput is returned when a query has nothing to operate on,
	// for example a nearest-obstacle query on a track with no obstacles
	ErrEmptyInput = errors.New("empty input")
)
