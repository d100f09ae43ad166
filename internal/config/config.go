// Package config loads sandvm.toml.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

const FileName = "sandvm.toml"

// Config is the runtime configuration. Command-line flags override it.
type Config struct {
	VM    VM    `toml:"vm"`
	Store Store `toml:"store"`
	Log   Log   `toml:"log"`
}

type VM struct {
	Name     string `toml:"name"`
	MaxSteps int    `toml:"max-steps"`
}

type Store struct {
	Path string `toml:"path"` // empty disables persistence
}

type Log struct {
	Level string `toml:"level"`
	Color bool   `toml:"color"`
}

// Default returns the configuration used when no file is present
func Default() Config {
	return Config{
		VM:  VM{Name: "sandvm"},
		Log: Log{Level: "warn", Color: true},
	}
}

// Load reads the file at path over the defaults. A missing file yields the
// defaults unless required is set.
func Load(path string, required bool) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !required {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("cannot read %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("unknown key %s in %s", undecoded[0], path)
	}

	if cfg.VM.Name == "" {
		cfg.VM.Name = "sandvm"
	}
	if cfg.VM.MaxSteps < 0 {
		return cfg, fmt.Errorf("max-steps in %s must not be negative", path)
	}
	if _, err := cfg.Level(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Level parses the configured log level
func (c Config) Level() (log.Level, error) {
	return log.ParseLevel(c.Log.Level)
}
