//go:build unix

package main

import (
	"io"

	flag "github.com/spf13/pflag"

	"github.com/cleanroom-sh/cleanroom/cleanroom"
)

// NewCmd creates the new command.
func NewCmd(dirs Dirs) *Command {
	flags := flag.NewFlagSet("new", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")

	return &Command{
		Flags: flags,
		Usage: "new <name>",
		Short: "Create a new environment",
		Long: "Create a new environment with a default config.toml and an empty rc.sh\n" +
			"in the config home, and an empty bin directory in the data home.",
		Aliases: []string{},
		Exec: func(_ io.Reader, stdout, _ io.Writer, args []string) error {
			name, err := nameArg(args)
			if err != nil {
				return err
			}

			layout, err := cleanroom.NewLayout(name, dirs.ConfigHome, dirs.DataHome)
			if err != nil {
				return err
			}

			err = layout.Create()
			if err != nil {
				return err
			}

			fprintf(stdout, "Created new environment %s in %s\n", name, layout.ConfigDir)

			return nil
		},
	}
}
