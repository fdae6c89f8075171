// Package config loads application settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// DefaultPath is the config file read when none is given explicitly.
const DefaultPath = "acedistance.toml"

// Config is the application configuration.
type Config struct {
	Program Program `toml:"program"`
	Grid    Grid    `toml:"grid"`
	Store   Store   `toml:"store"`
	Server  Server  `toml:"server"`
}

// Program holds run defaults.
type Program struct {
	Version       string `toml:"version" validate:"required"`
	DefaultOutDir string `toml:"default_outdir" validate:"required"`
	DebugMode     bool   `toml:"debug_mode"`
}

// Grid selects the layouts directory and the default layout.
type Grid struct {
	LayoutName string `toml:"layout_name" validate:"required"`
	LayoutsDir string `toml:"layouts_dir" validate:"required"`
}

// Store configures the SQLite database. An empty path disables it.
type Store struct {
	Path string `toml:"path"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `toml:"addr" validate:"required,hostname_port"`
	// RunsPerMinute limits run requests per client. Zero disables the limit.
	RunsPerMinute int `toml:"runs_per_minute" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Program: Program{
			Version:       "1.0.0",
			DefaultOutDir: "out",
		},
		Grid: Grid{
			LayoutName: "default",
			LayoutsDir: "layouts",
		},
		Store: Store{
			Path: "acedistance.db",
		},
		Server: Server{
			Addr:          "127.0.0.1:8080",
			RunsPerMinute: 30,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults
// unless required is set.
func Load(path string, required bool) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !required:
		return cfg, nil
	case err != nil:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every required setting is present.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
