//go:build !python

package carracing

import (
	"fmt"

	env "github.com/samuelfneumann/psiracing/environment"
)

// New returns an error, since the CarRacing environment is only
// available when built with the python build tag
func New(Config) (env.BaseEnv, error) {
	return nil, fmt.Errorf("new: CarRacing environment unavailable in " +
		"this build; rebuild with -tags python")
}
