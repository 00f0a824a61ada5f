//go:build unix

package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cleanroom-sh/cleanroom/cleanroom"
	"github.com/cleanroom-sh/cleanroom/envconfig"
)

// DebugLogger provides structured debug output for environment activation.
// It is disabled by default (when output is nil) and outputs to stderr when enabled.
type DebugLogger struct {
	output io.Writer
}

// NewDebugLogger creates a new debug logger.
// If output is nil, the logger is disabled and all methods are no-ops.
func NewDebugLogger(output io.Writer) *DebugLogger {
	return &DebugLogger{output: output}
}

// Enabled returns true if debug logging is enabled.
func (d *DebugLogger) Enabled() bool {
	return d.output != nil
}

// Section outputs a section header.
func (d *DebugLogger) Section(name string) {
	if d.output == nil {
		return
	}

	_, _ = fmt.Fprintf(d.output, "\n=== %s ===\n", name)
}

// Logf outputs a formatted debug message.
func (d *DebugLogger) Logf(format string, args ...any) {
	if d.output == nil {
		return
	}

	_, _ = fmt.Fprintf(d.output, format+"\n", args...)
}

// Bulletf outputs an indented bullet point item.
func (d *DebugLogger) Bulletf(format string, args ...any) {
	if d.output == nil {
		return
	}

	_, _ = fmt.Fprintf(d.output, "  • "+format+"\n", args...)
}

// List outputs a labelled list, or "(none)" when empty.
func (d *DebugLogger) List(label string, items []string) {
	if d.output == nil {
		return
	}

	if len(items) == 0 {
		_, _ = fmt.Fprintf(d.output, "  %s: (none)\n", label)
	} else {
		_, _ = fmt.Fprintf(d.output, "  %s: %s\n", label, strings.Join(items, ", "))
	}
}

// Debugf returns a callback for library debug messages, or nil when disabled.
func (d *DebugLogger) Debugf() cleanroom.Debugf {
	if d.output == nil {
		return nil
	}

	return d.Bulletf
}

// debugConfig outputs the loaded config document.
func debugConfig(debug *DebugLogger, path string, cfg envconfig.Config, noInherit bool) {
	if !debug.Enabled() {
		return
	}

	debug.Section("Config")
	debug.Logf("  file: %s", path)
	debug.Logf("  shell.bin: %s", cfg.Shell.Bin)
	debug.Logf("  shell: login=%t interactive=%t noprofile=%t norc=%t",
		cfg.Shell.Login, cfg.Shell.Interactive, cfg.Shell.NoProfile, cfg.Shell.NoRC)
	debug.List("vars.inherit", cfg.Vars.Inherit)
	debug.List("bin.inherit", cfg.Bin.Inherit)
	debug.List("bin.inherit_dirs", cfg.Bin.InheritDirs)

	if noInherit {
		debug.Logf("  --no-inherit: vars.inherit and bin.inherit are ignored")
	}
}

// debugActivation outputs the planned shell launch.
func debugActivation(debug *DebugLogger, act *cleanroom.Activation) {
	if !debug.Enabled() {
		return
	}

	debug.Section("Variables")

	vars := act.Vars()
	names := make([]string, 0, len(vars))

	for name := range vars {
		names = append(names, name)
	}

	sort.Strings(names)

	if len(names) == 0 {
		debug.Logf("  (none)")
	}

	for _, name := range names {
		debug.Bulletf("%s=%s", name, vars[name])
	}

	debug.Logf("  PATH=%s", act.Path())

	debug.Section("Shell")
	debug.Logf("  %s", strings.Join(append([]string{act.ShellBin()}, act.Argv()...), " "))
}
