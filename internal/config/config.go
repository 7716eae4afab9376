// Package config handles loading, defaulting, and validation of the tlecheck
// TOML configuration file. Every section maps to a typed struct so the rest
// of the codebase gets strong typing without manual key lookups.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/large-farva/tlecheck/internal/tle"
)

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Server  ServerConfig  `toml:"server"  json:"server"`
	Logging LoggingConfig `toml:"logging" json:"logging"`
	Parser  ParserConfig  `toml:"parser"  json:"parser"`
	Demo    DemoConfig    `toml:"demo"    json:"demo"`
	Metrics MetricsConfig `toml:"metrics" json:"metrics"`
}

type ServerConfig struct {
	Bind string `toml:"bind" json:"bind"`
	// MaxBodyBytes caps request bodies on the parse endpoints.
	MaxBodyBytes int64 `toml:"max_body_bytes" json:"max_body_bytes"`
}

// LoggingConfig selects the log level and, when File is set, a rotated log
// file written alongside stdout.
type LoggingConfig struct {
	Level      string `toml:"level"        json:"level"`
	File       string `toml:"file"         json:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"  json:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"  json:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days"`
	Compress   bool   `toml:"compress"     json:"compress"`
}

// ParserConfig mirrors tle.Options in snake_case.
type ParserConfig struct {
	Validate              bool   `toml:"validate"                json:"validate"`
	Mode                  string `toml:"mode"                    json:"mode"`
	StrictChecksums       bool   `toml:"strict_checksums"        json:"strict_checksums"`
	ValidateRanges        bool   `toml:"validate_ranges"         json:"validate_ranges"`
	IncludeWarnings       bool   `toml:"include_warnings"        json:"include_warnings"`
	IncludeComments       bool   `toml:"include_comments"        json:"include_comments"`
	AttemptRecovery       bool   `toml:"attempt_recovery"        json:"attempt_recovery"`
	MaxRecoveryAttempts   int    `toml:"max_recovery_attempts"   json:"max_recovery_attempts"`
	IncludePartialResults bool   `toml:"include_partial_results" json:"include_partial_results"`
	StrictMode            bool   `toml:"strict_mode"             json:"strict_mode"`
}

type DemoConfig struct {
	Enabled         bool `toml:"enabled"          json:"enabled"`
	IntervalSeconds int  `toml:"interval_seconds" json:"interval_seconds"`
	// Catalog is a bulk TLE file to replay. Empty uses the built-in sample.
	Catalog string `toml:"catalog" json:"catalog"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path"    json:"path"`
}

// Default returns a Config populated with sane defaults. Values here are
// used whenever the TOML file omits a field.
func Default() Config {
	opts := tle.DefaultOptions()
	return Config{
		Server: ServerConfig{
			Bind:         "0.0.0.0:8080",
			MaxBodyBytes: 1 << 20,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Parser: ParserConfig{
			Validate:              opts.Validate,
			Mode:                  string(opts.Mode),
			StrictChecksums:       opts.StrictChecksums,
			ValidateRanges:        opts.ValidateRanges,
			IncludeWarnings:       opts.IncludeWarnings,
			IncludeComments:       opts.IncludeComments,
			AttemptRecovery:       opts.AttemptRecovery,
			MaxRecoveryAttempts:   opts.MaxRecoveryAttempts,
			IncludePartialResults: opts.IncludePartialResults,
			StrictMode:            opts.StrictMode,
		},
		Demo: DemoConfig{
			Enabled:         true,
			IntervalSeconds: 5,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads the TOML file at path, layers it on top of the defaults, and
// validates the result. An error is returned if the file can't be read,
// parsed, or if any constraint is violated.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// ParserOptions converts the [parser] section to parser options.
func (c Config) ParserOptions() tle.Options {
	p := c.Parser
	return tle.Options{
		Validate:              p.Validate,
		Mode:                  tle.Mode(p.Mode),
		StrictChecksums:       p.StrictChecksums,
		ValidateRanges:        p.ValidateRanges,
		IncludeWarnings:       p.IncludeWarnings,
		IncludeComments:       p.IncludeComments,
		AttemptRecovery:       p.AttemptRecovery,
		MaxRecoveryAttempts:   p.MaxRecoveryAttempts,
		IncludePartialResults: p.IncludePartialResults,
		StrictMode:            p.StrictMode,
	}
}

// Encode renders cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

func validate(cfg Config) error {
	if cfg.Server.Bind == "" {
		return errors.New("server.bind must not be empty")
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes must be > 0")
	}
	if !validLevels[cfg.Logging.Level] {
		return errors.New("logging.level must be one of debug, info, warn, error")
	}
	if cfg.Logging.File != "" && cfg.Logging.MaxSizeMB <= 0 {
		return errors.New("logging.max_size_mb must be > 0 when logging.file is set")
	}
	if cfg.Logging.MaxBackups < 0 || cfg.Logging.MaxAgeDays < 0 {
		return errors.New("logging.max_backups and logging.max_age_days must be >= 0")
	}
	if err := cfg.ParserOptions().Check(); err != nil {
		return fmt.Errorf("parser: %w", err)
	}
	if cfg.Demo.IntervalSeconds < 0 {
		return errors.New("demo.interval_seconds must be >= 0")
	}
	if cfg.Metrics.Enabled && (cfg.Metrics.Path == "" || cfg.Metrics.Path[0] != '/') {
		return errors.New("metrics.path must start with /")
	}
	return nil
}
