// Package config loads tablescope settings from a TOML file. Settings
// come from ~/.config/tablescope/config.toml by default; a missing file
// means defaults apply.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ColorPair names a foreground and background color. Values are ANSI
// palette numbers or hex strings, whatever the terminal renderer accepts.
type ColorPair struct {
	FG string `toml:"fg"`
	BG string `toml:"bg"`
}

type Config struct {
	Columns struct {
		MinWidth int `toml:"min_width"`
		MaxWidth int `toml:"max_width"`
	} `toml:"columns"`

	Sort struct {
		NullsFirst bool `toml:"nulls_first"`
	} `toml:"sort"`

	Search struct {
		CaseSensitive bool `toml:"case_sensitive"`
	} `toml:"search"`

	Delta struct {
		TimeoutSeconds int `toml:"timeout_seconds"`
	} `toml:"delta"`

	Log struct {
		Path  string `toml:"path"`
		Level string `toml:"level"`
	} `toml:"log"`

	Colors struct {
		Header  ColorPair `toml:"header"`
		Cursor  ColorPair `toml:"cursor"`
		Match   ColorPair `toml:"match"`
		Status  ColorPair `toml:"status"`
		Warning ColorPair `toml:"warning"`
	} `toml:"colors"`
}

func Default() Config {
	var c Config
	c.Columns.MinWidth = 4
	c.Columns.MaxWidth = 40
	c.Delta.TimeoutSeconds = 60
	c.Log.Level = "info"
	c.Colors.Header = ColorPair{FG: "15", BG: "8"}
	c.Colors.Cursor = ColorPair{FG: "15", BG: "4"}
	c.Colors.Match = ColorPair{FG: "0", BG: "11"}
	c.Colors.Status = ColorPair{FG: "14"}
	c.Colors.Warning = ColorPair{FG: "9"}
	return c
}

// DefaultPath returns the per-user config file location, "" when the
// config directory cannot be resolved.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tablescope", "config.toml")
}

// Load reads the config at path, overlaying it on the defaults. An empty
// path means the default location. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.clamp()
	return cfg, nil
}

// WriteDefault writes a default config TOML to path, or to stdout when
// path is empty.
func WriteDefault(path string) error {
	cfg := Default()
	if path == "" {
		return toml.NewEncoder(os.Stdout).Encode(cfg)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// clamp keeps loaded values inside workable ranges.
func (c *Config) clamp() {
	if c.Columns.MinWidth < 1 {
		c.Columns.MinWidth = 1
	}
	if c.Columns.MaxWidth < c.Columns.MinWidth {
		c.Columns.MaxWidth = c.Columns.MinWidth
	}
	if c.Delta.TimeoutSeconds <= 0 {
		c.Delta.TimeoutSeconds = 60
	}
}
