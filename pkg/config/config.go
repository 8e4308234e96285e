// Package config decodes optional project-level defaults for the compiler
// driver from a TOML file, layered underneath whatever flags the CLI
// passed explicitly.
package config

import (
	"bufio"
	"errors"
	"os"
	"reflect"

	"github.com/naoina/toml"
)

// tomlSettings disables naoina/toml's default snake_case key normalisation
// so a project file can use the Go struct field names verbatim (OptLevel,
// not opt_level).
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
}

// Config holds the subset of driver options that may be defaulted from a
// project file. Zero values mean "not set" and fall back to Default()'s
// hardcoded values, matching what's used when no file is present at all.
type Config struct {
	OptLevel  int    `toml:",omitempty"`
	NoRuntime bool   `toml:",omitempty"`
	Verbose   bool   `toml:",omitempty"`
	CC        string `toml:",omitempty"`
}

// Default returns the package's hardcoded defaults, used when no config
// file exists and no override was supplied on the command line.
func Default() *Config {
	return &Config{OptLevel: 0}
}

// Load reads and decodes the TOML file at path. A missing file is not an
// error: Load returns Default() unchanged so the driver can apply CLI
// flags on top of it uniformly either way.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg); err != nil {
		var lineErr *toml.LineError
		if errors.As(err, &lineErr) {
			return nil, errors.New(path + ": " + err.Error())
		}
		return nil, err
	}
	return cfg, nil
}
