//go:build unix

package main

import (
	"errors"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/cleanroom-sh/cleanroom/cleanroom"
	"github.com/cleanroom-sh/cleanroom/envconfig"
)

// UseCmd creates the use command.
func UseCmd(dirs Dirs, env map[string]string) *Command {
	flags := flag.NewFlagSet("use", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")
	flags.BoolP("no-inherit", "I", false, "Ignore vars.inherit and bin.inherit")
	flags.Bool("dry-run", false, "Print the shell command instead of running it")
	flags.Bool("debug", false, "Print activation details to stderr")

	return &Command{
		Flags: flags,
		Usage: "use [flags] <name>",
		Short: "Start a shell in an environment",
		Long: "Link the environment's binaries, then start its shell with a cleared\n" +
			"environment that holds only the configured variables and PATH.\n" +
			"Exits with the shell's exit code.",
		Aliases: []string{"u"},
		Exec: func(stdin io.Reader, stdout, stderr io.Writer, args []string) error {
			name, err := nameArg(args)
			if err != nil {
				return err
			}

			var debug *DebugLogger
			if debugEnabled, _ := flags.GetBool("debug"); debugEnabled {
				debug = NewDebugLogger(stderr)
			} else {
				debug = NewDebugLogger(nil)
			}

			layout, err := cleanroom.NewLayout(name, dirs.ConfigHome, dirs.DataHome)
			if err != nil {
				return err
			}

			path, err := layout.ConfigFile()
			if err != nil {
				return err
			}

			cfg, err := envconfig.LoadFile(path, debug.Debugf())
			if err != nil {
				return err
			}

			noInherit, _ := flags.GetBool("no-inherit")
			debugConfig(debug, path, cfg, noInherit)

			environment, err := cleanroom.NewEnvironment(env)
			if err != nil {
				return err
			}

			debug.Section("Binaries")

			act, err := cleanroom.Prepare(cfg, layout, environment, cleanroom.PrepareOptions{
				NoInherit: noInherit,
				Debugf:    debug.Debugf(),
			})
			if err != nil {
				return err
			}

			debugActivation(debug, act)

			if dryRun, _ := flags.GetBool("dry-run"); dryRun {
				printDryRunOutput(stdout, act)

				return nil
			}

			status, err := act.Run(stdin, stdout, stderr)
			if errors.Is(err, cleanroom.ErrAbnormalExit) {
				fprintError(stderr, err)

				return NewExitCodeError(status.Code)
			}

			if err != nil {
				return err
			}

			return NewExitCodeError(status.Code)
		},
	}
}

// printDryRunOutput prints the activation as an env(1) command line.
// The output is shell-compatible and can be copy-pasted to run manually.
func printDryRunOutput(output io.Writer, act *cleanroom.Activation) {
	fprintf(output, "env -i \\\n")

	for _, kv := range act.EnvSlice() {
		fprintf(output, "  %s \\\n", shellQuoteIfNeeded(kv))
	}

	quoted := []string{shellQuoteIfNeeded(act.ShellBin())}
	for _, arg := range act.Argv() {
		quoted = append(quoted, shellQuoteIfNeeded(arg))
	}

	fprintf(output, "  %s\n", strings.Join(quoted, " "))
}

// shellQuoteIfNeeded returns the string quoted if it contains special characters,
// otherwise returns it unchanged.
func shellQuoteIfNeeded(str string) string {
	if str == "" {
		return "''"
	}

	for _, c := range str {
		if !isShellSafeChar(c) {
			escaped := strings.ReplaceAll(str, "'", "'\"'\"'")

			return "'" + escaped + "'"
		}
	}

	return str
}

// isShellSafeChar returns true if the character doesn't need quoting in shell.
func isShellSafeChar(c rune) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '/' || c == ':' || c == '=' || c == ','
}
