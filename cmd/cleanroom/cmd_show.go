//go:build unix

package main

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/cleanroom-sh/cleanroom/cleanroom"
	"github.com/cleanroom-sh/cleanroom/envconfig"
)

// ShowCmd creates the show command.
func ShowCmd(dirs Dirs) *Command {
	flags := flag.NewFlagSet("show", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")
	flags.Bool("json", false, "Print as JSON instead of TOML")
	flags.Bool("yaml", false, "Print as YAML instead of TOML")
	flags.Bool("path", false, "Print the config file path only")

	return &Command{
		Flags: flags,
		Usage: "show [flags] <name>",
		Short: "Print an environment's effective config",
		Long: "Print an environment's config with every default applied.\n" +
			"Keys missing from the file show their default value.",
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

			if pathOnly, _ := flags.GetBool("path"); pathOnly {
				path, err := layout.ConfigFile()
				if err != nil {
					return err
				}

				fprintln(stdout, path)

				return nil
			}

			cfg, err := layout.LoadConfig(nil)
			if err != nil {
				return err
			}

			asJSON, _ := flags.GetBool("json")
			asYAML, _ := flags.GetBool("yaml")

			var out []byte

			switch {
			case asJSON && asYAML:
				return fmt.Errorf("%w: --json and --yaml are mutually exclusive", ErrUsage)
			case asJSON:
				out, err = envconfig.MarshalJSON(cfg)
			case asYAML:
				out, err = envconfig.MarshalYAML(cfg)
			default:
				out, err = envconfig.Marshal(cfg)
			}

			if err != nil {
				return err
			}

			_, err = stdout.Write(out)

			return err
		},
	}
}
