// Package envconfig holds the declarative settings of a single cleanroom
// environment and reads them from the environment's config document.
//
// A config document has three top-level sections, shell, vars and bin. Every
// field has a default, and a document only overrides the keys it names:
//
//	[shell]
//	bin = "/bin/bash"
//
// keeps the defaults of every other shell field and of the vars and bin
// sections. Unknown keys are ignored so that older binaries can read documents
// written for newer ones.
//
// Documents are TOML (config.toml). JSON with comments (config.jsonc or
// config.json) and YAML (config.yaml or config.yml) are accepted with the
// same keys.
package envconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the document written for new environments.
const DefaultFileName = "config.toml"

var (
	// ErrParse is wrapped by every [ParseError].
	ErrParse = errors.New("invalid config document")
	// ErrDuplicateConfigFiles is returned when a config directory holds more
	// than one config document.
	ErrDuplicateConfigFiles = errors.New("duplicate config files")
)

// Config is the declarative configuration of one environment.
type Config struct {
	Shell Shell `json:"shell" toml:"shell" yaml:"shell"`
	Vars  Vars  `json:"vars" toml:"vars" yaml:"vars"`
	Bin   Bin   `json:"bin" toml:"bin" yaml:"bin"`
}

// Shell controls which shell is started and with which flags.
type Shell struct {
	Bin         string `json:"bin" toml:"bin" yaml:"bin"`
	Login       bool   `json:"login" toml:"login" yaml:"login"`
	Interactive bool   `json:"interactive" toml:"interactive" yaml:"interactive"`
	NoProfile   bool   `json:"noprofile" toml:"noprofile" yaml:"noprofile"`
	NoRC        bool   `json:"norc" toml:"norc" yaml:"norc"`
}

// Vars is the environment variable policy.
type Vars struct {
	// Inherit lists variables copied from the caller's environment, in order.
	Inherit []string `json:"inherit" toml:"inherit" yaml:"inherit"`

	// ExitOnMissing makes a variable listed in Inherit that is absent from
	// the caller's environment an error instead of a skip.
	ExitOnMissing bool `json:"exit_on_missing" toml:"exit_on_missing" yaml:"exit_on_missing"`

	// Set holds variables specific to the environment. Set overrides Inherit
	// for the same name.
	Set map[string]string `json:"set" toml:"set" yaml:"set"`
}

// Bin is the binary inheritance policy.
type Bin struct {
	// InheritDirs are joined, in order, into the shell's PATH.
	InheritDirs []string `json:"inherit_dirs" toml:"inherit_dirs" yaml:"inherit_dirs"`

	// Inherit lists binaries symlinked into the environment's bin directory.
	// Absolute entries are used as-is, other entries are looked up in the
	// host PATH.
	Inherit []string `json:"inherit" toml:"inherit" yaml:"inherit"`

	// ExitOnChange makes an existing link that points somewhere else than
	// the resolved binary an error. When false the existing link is kept.
	ExitOnChange bool `json:"exit_on_change" toml:"exit_on_change" yaml:"exit_on_change"`

	// ExitOnNotFound makes a relative entry that is not found in the host
	// PATH an error. When false the entry is skipped.
	ExitOnNotFound bool `json:"exit_on_not_found" toml:"exit_on_not_found" yaml:"exit_on_not_found"`
}

// Default returns the configuration used for every key a document omits.
// Each call returns fresh slices and maps.
func Default() Config {
	return Config{
		Shell: Shell{
			Bin:         "/bin/sh",
			Login:       false,
			Interactive: true,
			NoProfile:   true,
			NoRC:        false,
		},
		Vars: Vars{
			Inherit:       []string{},
			ExitOnMissing: true,
			Set:           map[string]string{},
		},
		Bin: Bin{
			InheritDirs:    []string{"/usr/local/bin", "/bin", "/usr/bin"},
			Inherit:        []string{},
			ExitOnChange:   true,
			ExitOnNotFound: true,
		},
	}
}

// Format is the syntax of a config document.
type Format string

const (
	// FormatTOML is the default document syntax.
	FormatTOML Format = "toml"
	// FormatJSONC is JSON with comments and trailing commas.
	FormatJSONC Format = "jsonc"
	// FormatYAML is a YAML document.
	FormatYAML Format = "yaml"
)

// FormatOf returns the document format implied by path's extension.
// Anything that is not JSON or YAML is read as TOML.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return FormatJSONC
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// ParseError reports a document that could not be decoded: malformed syntax,
// or a value whose type does not match a known key.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parsing config: %v", e.Err)
	}

	return fmt.Sprintf("parsing config %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// Parse decodes a config document. Keys absent from data keep their value
// from [Default].
func Parse(data []byte, format Format) (Config, error) {
	cfg, _, err := parse(data, format)
	if err != nil {
		return Config{}, &ParseError{Err: err}
	}

	return cfg, nil
}

// LoadFile reads and decodes the document at path. Keys the decoder did not
// recognise are reported through debugf, which may be nil.
func LoadFile(path string, debugf func(format string, args ...any)) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg, unknown, err := parse(data, FormatOf(path))
	if err != nil {
		return Config{}, &ParseError{Path: path, Err: err}
	}

	if debugf != nil {
		for _, key := range unknown {
			debugf("config: ignoring unknown key %q in %s", key, path)
		}
	}

	return cfg, nil
}

func parse(data []byte, format Format) (Config, []string, error) {
	cfg := Default()

	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, nil, err
		}

		undecoded := md.Undecoded()

		unknown := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			unknown = append(unknown, key.String())
		}

		return cfg, unknown, nil

	case FormatJSONC:
		// An empty document sets nothing, as in TOML and YAML.
		if len(bytes.TrimSpace(data)) == 0 {
			return cfg, nil, nil
		}

		// Standardize strips comments and trailing commas so that both .json
		// and .jsonc documents can carry comments.
		standardized, err := hujson.Standardize(data)
		if err != nil {
			return Config{}, nil, err
		}

		err = json.Unmarshal(standardized, &cfg)
		if err != nil {
			return Config{}, nil, err
		}

		return cfg, nil, nil

	case FormatYAML:
		unknown, err := decodeYAML(data, &cfg)
		if err != nil {
			return Config{}, nil, err
		}

		return cfg, unknown, nil

	default:
		return Config{}, nil, fmt.Errorf("unknown config format %q", format)
	}
}

// Marshal encodes cfg as a TOML document.
func Marshal(cfg Config) ([]byte, error) {
	var buf bytes.Buffer

	enc := toml.NewEncoder(&buf)
	enc.Indent = ""

	err := enc.Encode(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	return buf.Bytes(), nil
}

// MarshalJSON encodes cfg as indented JSON, readable by [Parse] with
// [FormatJSONC].
func MarshalJSON(cfg Config) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	return append(data, '\n'), nil
}

// MarshalYAML encodes cfg as a YAML document.
func MarshalYAML(cfg Config) ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	err := enc.Encode(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	return buf.Bytes(), nil
}

// configFileNames are the document names FindFile looks for, in order.
var configFileNames = []string{DefaultFileName, "config.jsonc", "config.json", "config.yaml", "config.yml"}

// FindFile returns the config document inside dir.
//
// It is an error for dir to contain more than one document. If dir contains
// none, the returned error wraps [os.ErrNotExist].
func FindFile(dir string) (string, error) {
	var found []string

	for _, name := range configFileNames {
		path := filepath.Join(dir, name)

		exists, err := fileExists(path)
		if err != nil {
			return "", err
		}

		if exists {
			found = append(found, path)
		}
	}

	switch len(found) {
	case 0:
		return "", fmt.Errorf("no config document in %s: %w", dir, os.ErrNotExist)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%w: %s exist; remove all but one", ErrDuplicateConfigFiles, strings.Join(found, " and "))
	}
}

// fileExists checks if a file exists and is not a directory.
// Returns (true, nil) if file exists, (false, nil) if not found,
// or (false, error) for other errors (e.g., permission denied).
func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("checking file %s: %w", path, err)
	}

	if info.IsDir() {
		return false, nil
	}

	return true, nil
}
