//go:build unix

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"
)

// Set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Run is the main entry point. Returns exit code.
// env is the process environment; command code never calls os.Getenv.
func Run(stdin io.Reader, stdout, stderr io.Writer, args []string, env map[string]string) int {
	globalFlags := flag.NewFlagSet("cleanroom", flag.ContinueOnError)
	globalFlags.SetInterspersed(false)
	globalFlags.Usage = func() {}
	globalFlags.SetOutput(&strings.Builder{})

	flagHelp := globalFlags.BoolP("help", "h", false, "Show help")
	flagVersion := globalFlags.BoolP("version", "v", false, "Show version and exit")
	flagConfigHome := globalFlags.String("config-home", "", "Keep environment configs in `dir`")
	flagDataHome := globalFlags.String("data-home", "", "Keep environment data in `dir`")

	err := globalFlags.Parse(args[1:])
	if err != nil {
		fprintError(stderr, err)
		fprintln(stderr)
		printGlobalOptions(stderr)

		return exitUsage
	}

	if *flagVersion {
		if commit == "none" && date == "unknown" {
			fprintf(stdout, "cleanroom %s (built from source)\n", version)
		} else {
			fprintf(stdout, "cleanroom %s (%s, %s)\n", version, commit, date)
		}

		return exitOK
	}

	dirs, err := resolveDirs(env, *flagConfigHome, *flagDataHome)
	if err != nil {
		fprintError(stderr, err)

		return exitError
	}

	commands := []*Command{
		NewCmd(dirs),
		UseCmd(dirs, env),
		RmCmd(dirs),
		LsCmd(dirs),
		ShowCmd(dirs),
	}

	commandMap := make(map[string]*Command, len(commands)*2)
	for _, cmd := range commands {
		commandMap[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases {
			commandMap[alias] = cmd
		}
	}

	commandAndArgs := globalFlags.Args()

	if *flagHelp || len(commandAndArgs) == 0 {
		printUsage(stdout, commands)

		return exitOK
	}

	cmd, ok := commandMap[commandAndArgs[0]]
	if !ok {
		fprintError(stderr, fmt.Errorf("%w: unknown command %q", ErrUsage, commandAndArgs[0]))
		fprintln(stderr)
		printGlobalOptions(stderr)

		return exitUsage
	}

	return cmd.Run(stdin, stdout, stderr, commandAndArgs[1:])
}

func fprint(output io.Writer, a ...any) {
	_, _ = fmt.Fprint(output, a...)
}

func fprintln(output io.Writer, a ...any) {
	_, _ = fmt.Fprintln(output, a...)
}

func fprintf(output io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(output, format, a...)
}

// ANSI color codes for terminal output.
const (
	colorRed   = "\033[31m"
	colorReset = "\033[0m"
)

// fprintError prints an error message with optional red coloring for TTY.
func fprintError(output io.Writer, err error) {
	if IsTerminal() {
		fprintln(output, colorRed+"error:"+colorReset, err)
	} else {
		fprintln(output, "error:", err)
	}
}

const globalOptionsHelp = `  -h, --help               Show help
  -v, --version            Show version and exit
      --config-home <dir>  Keep environment configs in <dir>
                           (default $XDG_CONFIG_HOME/cleanroom)
      --data-home <dir>    Keep environment data in <dir>
                           (default $XDG_DATA_HOME/cleanroom)`

func printGlobalOptions(output io.Writer) {
	fprintln(output, "Usage: cleanroom [flags] <command> [args]")
	fprintln(output)
	fprintln(output, "Global flags:")
	fprintln(output, globalOptionsHelp)
	fprintln(output)
	fprintln(output, "Run 'cleanroom --help' for a list of commands.")
}

func printUsage(output io.Writer, commands []*Command) {
	fprintln(output, "cleanroom - start shells in clean, declared environments")
	fprintln(output)
	fprintln(output, "Usage: cleanroom [flags] <command> [args]")
	fprintln(output)
	fprintln(output, "Flags:")
	fprintln(output, globalOptionsHelp)
	fprintln(output)
	fprintln(output, "Commands:")

	for _, cmd := range commands {
		fprintln(output, cmd.HelpLine())
	}

	fprintln(output)
	fprintln(output, "Run 'cleanroom <command> --help' for more information on a command.")
}

// isTerminal is a function variable that returns true if stderr is a terminal.
// It can be overridden in tests to control TTY behavior.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// IsTerminal returns true if stderr is a terminal.
func IsTerminal() bool {
	return isTerminal()
}
