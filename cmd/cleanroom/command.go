//go:build unix

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/cleanroom-sh/cleanroom/cleanroom"
	"github.com/cleanroom-sh/cleanroom/envconfig"
)

// Exit codes.
const (
	exitOK          = 0
	exitError       = 1
	exitUsage       = 2
	exitConfig      = 3
	exitEnvNotFound = 4
)

var (
	// ErrSilentExit makes a command exit 1 without printing anything.
	ErrSilentExit = errors.New("silent exit")
	// ErrUsage is returned for invalid command-line usage.
	ErrUsage = errors.New("usage error")
)

// ExitCodeError ends a command with a specific exit code and no message.
type ExitCodeError struct {
	Code int
}

// NewExitCodeError returns an error that makes the command exit with code.
func NewExitCodeError(code int) error {
	return &ExitCodeError{Code: code}
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Command is a subcommand of the CLI.
type Command struct {
	Flags   *flag.FlagSet
	Usage   string // "use [flags] <name>"; the first word is the command name
	Short   string
	Long    string
	Aliases []string
	Exec    func(stdin io.Reader, stdout, stderr io.Writer, args []string) error
}

// Name returns the command name, taken from Usage.
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// HelpLine returns the one-line summary shown in the global usage.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-24s %s", c.Usage, c.Short)
}

// PrintHelp writes the command's full help.
func (c *Command) PrintHelp(output io.Writer) {
	fprintf(output, "Usage: cleanroom %s\n\n", c.Usage)

	if c.Long != "" {
		fprintln(output, c.Long)
	} else {
		fprintln(output, c.Short)
	}

	if len(c.Aliases) > 0 {
		fprintln(output)
		fprintf(output, "Aliases: %s\n", strings.Join(c.Aliases, ", "))
	}

	fprintln(output)
	fprintln(output, "Flags:")
	fprint(output, c.Flags.FlagUsages())
}

// Run parses args and executes the command. Returns the exit code.
func (c *Command) Run(stdin io.Reader, stdout, stderr io.Writer, args []string) int {
	c.Flags.Usage = func() {}
	c.Flags.SetOutput(io.Discard)

	err := c.Flags.Parse(args)
	if err != nil {
		fprintError(stderr, err)
		fprintln(stderr)
		c.PrintHelp(stderr)

		return exitUsage
	}

	if help, _ := c.Flags.GetBool("help"); help {
		c.PrintHelp(stdout)

		return exitOK
	}

	err = c.Exec(stdin, stdout, stderr, c.Flags.Args())
	if err == nil {
		return exitOK
	}

	var exitErr *ExitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	if errors.Is(err, ErrSilentExit) {
		return exitError
	}

	fprintError(stderr, err)

	if errors.Is(err, ErrUsage) {
		fprintf(stderr, "Run 'cleanroom %s --help' for usage.\n", c.Name())
	}

	return exitCodeFor(err)
}

// exitCodeFor maps an error returned by a command to the process exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, ErrUsage), errors.Is(err, cleanroom.ErrInvalidName):
		return exitUsage
	case errors.Is(err, envconfig.ErrParse),
		errors.Is(err, envconfig.ErrDuplicateConfigFiles),
		errors.Is(err, cleanroom.ErrConfigFileMissing):
		return exitConfig
	case errors.Is(err, cleanroom.ErrEnvNotFound):
		return exitEnvNotFound
	default:
		return exitError
	}
}

// nameArg returns the single environment name in args.
func nameArg(args []string) (string, error) {
	switch len(args) {
	case 0:
		return "", fmt.Errorf("%w: missing environment name", ErrUsage)
	case 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("%w: unexpected arguments: %s", ErrUsage, strings.Join(args[1:], " "))
	}
}
