// Package aliasing provides span-kind alias resolution for stream filters.
//
// Agent frameworks emit different kind tags for the same logical operation
// ("llm.call" vs "openai.response.create" vs "response.create"), which makes
// kinds filters brittle across producers. This package loads an optional
// alias configuration and resolves producer-specific kinds to canonical
// kinds at filter-match time. Stored and streamed events are never
// rewritten.
package aliasing

import (
	"errors"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ariadne-io/ariadne/internal/config"
)

type (
	// Config holds kind alias configuration loaded from .ariadne.yaml.
	Config struct {
		// KindAliases lists alias patterns in evaluation order; the first
		// matching pattern wins.
		//nolint:tagliatelle // snake_case is intentional for YAML config files
		KindAliases []KindAlias `yaml:"kind_aliases"`
	}

	// KindAlias maps a producer-specific kind pattern to a canonical kind.
	// Patterns support {var} placeholders matching one dot-free segment.
	KindAlias struct {
		Pattern   string `yaml:"pattern"`
		Canonical string `yaml:"canonical"`
	}
)

// DefaultConfigPath is the default location for the alias configuration
// file. Uses hidden file format following common tool conventions
// (.eslintrc, .prettierrc, etc.).
const DefaultConfigPath = ".ariadne.yaml"

// ConfigPathEnvVar is the environment variable name for a custom config path.
const ConfigPathEnvVar = "ARIADNE_CONFIG"

// LoadConfig loads alias configuration from a YAML file at the given path.
//
// Behavior:
//   - Returns empty config (not error) if the file doesn't exist - aliases
//     are optional
//   - Returns empty config + logs warning if the YAML is invalid (graceful
//     degradation)
//   - Returns populated config on success
//
// This graceful degradation ensures the server can start even without
// aliases configured; with an empty config, kind filters match exactly.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Missing file is OK - aliases are optional
			slog.Debug("Config file not found, continuing without kind aliases",
				slog.String("path", path))

			return cfg, nil
		}

		// Other read errors (permissions, etc.) - log warning and continue
		slog.Warn("Failed to read config file, continuing without kind aliases",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return cfg, nil
	}

	// Empty file is valid - just no aliases
	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		// Invalid YAML - log warning and continue with empty config
		slog.Warn("Failed to parse config file, continuing without kind aliases",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return &Config{}, nil
	}

	return cfg, nil
}

// LoadConfigFromEnv loads config from the path specified in the
// ARIADNE_CONFIG environment variable. Falls back to ".ariadne.yaml" in the
// current directory if not set.
func LoadConfigFromEnv() (*Config, error) {
	path := config.GetEnvStr(ConfigPathEnvVar, DefaultConfigPath)

	return LoadConfig(path)
}
