//go:build unix

package cleanroom

import (
	"fmt"
	"maps"
	"os"
	"strings"
)

// Environment describes the host process state an activation reads.
type Environment struct {
	// WorkDir is the host working directory. Relative entries of the host
	// PATH resolve against it.
	WorkDir string
	// HostEnv is a snapshot of the caller's environment variables.
	//
	// It is the inheritance source for vars.inherit and provides the host PATH
	// used to look up bin.inherit entries. The activated shell never sees it
	// directly. If HostEnv is nil, an empty environment is used.
	HostEnv map[string]string
}

// DefaultEnvironment returns an Environment derived from the current process.
//
// HostEnv is populated from os.Environ(). Invalid KEY=VALUE entries are
// ignored. Values are kept byte-for-byte, so a variable that is not valid
// UTF-8 is still visible to [ResolveVars].
func DefaultEnvironment() (Environment, error) {
	return NewEnvironment(ParseEnviron(os.Environ()))
}

// NewEnvironment returns an Environment with the given host variables and
// WorkDir resolved from os.Getwd().
func NewEnvironment(hostEnv map[string]string) (Environment, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return Environment{}, fmt.Errorf("get working directory: %w", err)
	}

	return Environment{
		WorkDir: workDir,
		HostEnv: hostEnv,
	}, nil
}

// ParseEnviron converts KEY=VALUE entries into a map. Entries without "=" or
// with an empty key are ignored. Later entries win.
func ParseEnviron(environ []string) map[string]string {
	env := make(map[string]string, len(environ))

	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}

		env[key] = value
	}

	return env
}

func cloneEnvironment(env Environment) Environment {
	env.HostEnv = maps.Clone(env.HostEnv)

	return env
}
