//go:build unix

package cleanroom

import (
	"fmt"
	"maps"
	"unicode/utf8"

	"github.com/cleanroom-sh/cleanroom/envconfig"
)

// ResolveVars returns the variables the environment's shell starts with.
//
// Each name in vars.Inherit is copied from hostEnv, in order. A name absent
// from hostEnv fails the whole resolution with [ErrMissingVariable] when
// vars.ExitOnMissing is set and is skipped otherwise. A value that is not
// valid UTF-8 always fails with [ErrInvalidVariableEncoding]. On error the
// returned map is nil.
//
// vars.Set is applied last and overrides inherited values of the same name.
// hostEnv is only read.
func ResolveVars(vars envconfig.Vars, hostEnv map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(vars.Inherit)+len(vars.Set))

	for _, name := range vars.Inherit {
		value, ok := hostEnv[name]
		if !ok {
			if vars.ExitOnMissing {
				return nil, fmt.Errorf("%w: %q", ErrMissingVariable, name)
			}

			continue
		}

		if !utf8.ValidString(value) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidVariableEncoding, name)
		}

		resolved[name] = value
	}

	maps.Copy(resolved, vars.Set)

	return resolved, nil
}
