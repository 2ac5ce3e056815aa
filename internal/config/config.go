// Package config loads the optional fastcopy configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the optional fastcopy configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Theme    ThemeConfig    `toml:"theme"`

	// Undecoded lists keys present in the file that fastcopy does not know.
	Undecoded []string `toml:"-"`
}

// DefaultsConfig holds persistent flag defaults. A nil field means the
// key was absent and the built-in default applies.
type DefaultsConfig struct {
	Workers   *int     `toml:"workers"`
	Mode      *string  `toml:"mode"`
	Quick     *bool    `toml:"quick"`
	Overwrite *bool    `toml:"overwrite"`
	Verify    *bool    `toml:"verify"`
	Exclude   []string `toml:"exclude"`
}

// ThemeConfig holds optional color overrides for the progress display.
type ThemeConfig struct {
	Green  *string `toml:"green"`
	Yellow *string `toml:"yellow"`
	Red    *string `toml:"red"`
	Muted  *string `toml:"muted"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "fastcopy", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. A missing file yields a zero Config.
func LoadFile(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}

	for _, key := range md.Undecoded() {
		cfg.Undecoded = append(cfg.Undecoded, key.String())
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that can be judged without the CLI.
func (c Config) Validate() error {
	if w := c.Defaults.Workers; w != nil && *w < 1 {
		return fmt.Errorf("defaults.workers must be at least 1, got %d", *w)
	}
	if m := c.Defaults.Mode; m != nil {
		switch *m {
		case "thread", "threads", "process", "processes":
		default:
			return fmt.Errorf("defaults.mode must be \"thread\" or \"process\", got %q", *m)
		}
	}
	return nil
}
