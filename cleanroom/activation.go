//go:build unix

// Package cleanroom activates named shell environments.
//
// An environment is a config document (see package envconfig) plus a private
// bin directory. Activating it
//
//  1. symlinks the binaries listed in bin.inherit from the host into the
//     environment's bin directory ([InheritBins]),
//  2. resolves the variables the shell starts with ([ResolveVars]),
//  3. builds the shell's argv ([ShellArgs]) and PATH ([BuildPath]), and
//  4. runs the shell with a cleared environment that contains only the
//     resolved variables and PATH, waiting for it to exit.
//
// # Planning vs Execution
//
// Steps 1-3 happen in [Prepare], which returns an [Activation]. Every error a
// config or the host can cause is reported there, before any process exists.
// [Activation.Run] then only starts the shell and reports how it exited.
//
// # Host State
//
// Prepare never reads the process environment. The caller passes an
// [Environment] snapshot (see [DefaultEnvironment]) that supplies both the
// variables to inherit and the host PATH used for binary lookup. Tests can
// construct one directly.
//
// Symlinks in the bin directory persist between activations and are
// reconciled, not recreated. Nothing guards against two activations of the
// same environment running at once; link creation fails closed in that case.
package cleanroom

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"syscall"

	"github.com/cleanroom-sh/cleanroom/envconfig"
)

// Debugf receives debug messages from activation planning.
type Debugf func(format string, args ...any)

func (d Debugf) printf(format string, args ...any) {
	if d != nil {
		d(format, args...)
	}
}

// PrepareOptions tune a single activation.
type PrepareOptions struct {
	// NoInherit ignores vars.inherit and bin.inherit: the shell only gets
	// vars.set and PATH, and no links are created or checked.
	NoInherit bool

	// Debugf, if set, receives debug messages.
	Debugf Debugf
}

// Activation is a planned shell launch. It is created by [Prepare].
type Activation struct {
	shellBin string
	argv     []string
	path     string
	vars     map[string]string
	envSlice []string
}

// Prepare plans the activation of the environment at layout using cfg.
//
// Binary links are reconciled as a side effect. Any error aborts the
// activation; links created before the error are kept.
func Prepare(cfg envconfig.Config, layout Layout, env Environment, opts PrepareOptions) (*Activation, error) {
	debugf := opts.Debugf
	env = cloneEnvironment(env)

	if opts.NoInherit {
		debugf.printf("activation: inheritance disabled")

		cfg.Vars.Inherit = nil
		cfg.Bin.Inherit = nil
	}

	err := validateActivation(&cfg, layout, env)
	if err != nil {
		return nil, fmt.Errorf("validating: %w", err)
	}

	err = InheritBins(cfg.Bin, layout.BinDir, env, debugf)
	if err != nil {
		return nil, fmt.Errorf("inheriting binaries: %w", err)
	}

	vars, err := ResolveVars(cfg.Vars, env.HostEnv)
	if err != nil {
		return nil, fmt.Errorf("resolving variables: %w", err)
	}

	path, err := BuildPath(cfg.Bin.InheritDirs)
	if err != nil {
		return nil, err
	}

	shellBin, err := resolveShell(cfg.Shell.Bin, cfg.Bin.InheritDirs)
	if err != nil {
		return nil, err
	}

	argv := ShellArgs(cfg.Shell, layout.RCFile)

	childEnv := maps.Clone(vars)

	// PATH comes from bin.inherit_dirs even if vars.set names it.
	childEnv["PATH"] = path

	debugf.printf("activation: shell=%s argv=%q vars=%d PATH=%s", shellBin, argv, len(vars), path)

	return &Activation{
		shellBin: shellBin,
		argv:     argv,
		path:     path,
		vars:     vars,
		envSlice: envMapToSliceSorted(childEnv),
	}, nil
}

// ShellBin returns the executable that Run starts.
func (a *Activation) ShellBin() string { return a.shellBin }

// Argv returns the arguments passed to the shell, without argv[0].
func (a *Activation) Argv() []string { return slices.Clone(a.argv) }

// Path returns the PATH the shell starts with.
func (a *Activation) Path() string { return a.path }

// Vars returns the resolved variables, without PATH.
func (a *Activation) Vars() map[string]string { return maps.Clone(a.vars) }

// EnvSlice returns the shell's complete environment as sorted KEY=VALUE
// entries.
func (a *Activation) EnvSlice() []string { return slices.Clone(a.envSlice) }

// Command constructs an unstarted [exec.Cmd] for the shell. Its environment
// is exactly [Activation.EnvSlice]; nothing is inherited from the caller.
func (a *Activation) Command() *exec.Cmd {
	cmd := exec.Command(a.shellBin, a.argv...)
	cmd.Env = slices.Clone(a.envSlice)

	return cmd
}

// Run starts the shell with the given stdio and waits for it to exit.
//
// A shell that cannot be started fails with [ErrSpawn]. A shell killed by a
// signal is reported with [ErrAbnormalExit] alongside its status. A non-zero
// exit code is not an error.
//
// While the shell runs, SIGINT and SIGQUIT delivered to the caller are
// discarded: the terminal sends them to the whole foreground process group
// and the shell handles its own copy. The shell starts with default signal
// dispositions.
func (a *Activation) Run(stdin io.Reader, stdout, stderr io.Writer) (ExitStatus, error) {
	cmd := a.Command()
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGQUIT)

	defer signal.Stop(sigCh)

	err := cmd.Start()
	if err != nil {
		return ExitStatus{Code: 1}, fmt.Errorf("%w %s: %w", ErrSpawn, a.shellBin, err)
	}

	err = cmd.Wait()

	return exitStatus(cmd.ProcessState, err)
}

// validateActivation checks the inputs Prepare relies on.
func validateActivation(cfg *envconfig.Config, layout Layout, env Environment) error {
	var errs []error

	if strings.TrimSpace(cfg.Shell.Bin) == "" {
		errs = append(errs, fmt.Errorf("%w: shell.bin is empty", ErrInvalidShell))
	}

	if strings.TrimSpace(layout.BinDir) == "" {
		errs = append(errs, errors.New("layout BinDir is empty"))
	} else if !filepath.IsAbs(layout.BinDir) {
		errs = append(errs, fmt.Errorf("layout BinDir %q is not absolute", layout.BinDir))
	}

	if strings.TrimSpace(layout.RCFile) == "" {
		errs = append(errs, errors.New("layout RCFile is empty"))
	}

	if strings.TrimSpace(env.WorkDir) == "" {
		errs = append(errs, errors.New("environment WorkDir is empty"))
	} else if !filepath.IsAbs(env.WorkDir) {
		errs = append(errs, fmt.Errorf("environment WorkDir %q is not absolute", env.WorkDir))
	}

	return errors.Join(errs...)
}

// envMapToSliceSorted converts a map env to a sorted KEY=VALUE slice.
//
// Sorting improves determinism in tests and makes debug output stable.
func envMapToSliceSorted(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}

	return out
}
