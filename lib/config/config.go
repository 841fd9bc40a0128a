// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// EnvVar names the configuration file for Load.
const EnvVar = "BUREAU_WIDGET_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Transport modes. ModeAuto detects the hosting context; the others
// force one transport kind and must match the kind names of package
// transport.
const (
	ModeAuto              = "auto"
	ModeEmbeddedFrame     = "embedded_frame"
	ModeHostedFrame       = "hosted_frame"
	ModeBackgroundWorker  = "background_worker"
	ModeSubprocessChannel = "subprocess_channel"
	ModeUnattached        = "unattached"
)

var transportModes = []string{
	ModeAuto, ModeEmbeddedFrame, ModeHostedFrame,
	ModeBackgroundWorker, ModeSubprocessChannel, ModeUnattached,
}

// Log formats.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the configuration of a widget or host binary.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// Transport configures how the widget reaches its host.
	Transport TransportConfig `yaml:"transport"`

	// Fetch configures default data fetches.
	Fetch FetchConfig `yaml:"fetch"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths     *PathsConfig     `yaml:"paths,omitempty"`
	Logging   *LoggingConfig   `yaml:"logging,omitempty"`
	Transport *TransportConfig `yaml:"transport,omitempty"`
	Fetch     *FetchConfig     `yaml:"fetch,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for widget data.
	Root string `yaml:"root"`

	// Bin is where widget binaries are installed. The development
	// host resolves widget names here before falling back to PATH.
	Bin string `yaml:"bin"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	// Default: info
	Level string `yaml:"level"`

	// Format is text, json, or auto (text when stderr is a terminal).
	// Default: auto
	Format string `yaml:"format"`
}

// TransportConfig configures the widget transport.
type TransportConfig struct {
	// Mode is auto or a forced transport kind.
	// Default: auto
	Mode string `yaml:"mode"`

	// CompressionThreshold is the frame body size above which stream
	// transports compress. Zero uses the codec default; negative
	// disables compression.
	CompressionThreshold int `yaml:"compression_threshold"`
}

// FetchConfig configures default data fetches.
type FetchConfig struct {
	// IncludeColumns is "shown" or "all".
	// Default: shown
	IncludeColumns string `yaml:"include_columns"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "bureau-widget")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root: defaultRoot,
			Bin:  filepath.Join(defaultRoot, "bin"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: FormatAuto,
		},
		Transport: TransportConfig{
			Mode: ModeAuto,
		},
		Fetch: FetchConfig{
			IncludeColumns: "shown",
		},
	}
}

// Load loads configuration from the BUREAU_WIDGET_CONFIG environment
// variable. It fails when the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your widget config file, or use --config flag", EnvVar)
	}

	return LoadFile(configPath)
}

// LoadOrDefault loads from BUREAU_WIDGET_CONFIG when it is set and
// returns Default otherwise. Widgets spawned by a host usually run
// without a config file.
func LoadOrDefault() (*Config, error) {
	if os.Getenv(EnvVar) == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return Load()
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Apply environment-specific overrides (development/staging/production sections in the file).
	cfg.applyEnvironmentOverrides()

	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: machine-readable logs, detected transport.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Logging:   &LoggingConfig{Format: FormatJSON},
				Transport: &TransportConfig{Mode: ModeAuto},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.Bin != "" {
			c.Paths.Bin = overrides.Paths.Bin
		}
	}

	if overrides.Logging != nil {
		if overrides.Logging.Level != "" {
			c.Logging.Level = overrides.Logging.Level
		}
		if overrides.Logging.Format != "" {
			c.Logging.Format = overrides.Logging.Format
		}
	}

	if overrides.Transport != nil {
		if overrides.Transport.Mode != "" {
			c.Transport.Mode = overrides.Transport.Mode
		}
		if overrides.Transport.CompressionThreshold != 0 {
			c.Transport.CompressionThreshold = overrides.Transport.CompressionThreshold
		}
	}

	if overrides.Fetch != nil && overrides.Fetch.IncludeColumns != "" {
		c.Fetch.IncludeColumns = overrides.Fetch.IncludeColumns
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"BUREAU_WIDGET_ROOT": c.Paths.Root,
		"HOME":               os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["BUREAU_WIDGET_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.Bin = expandVars(c.Paths.Bin, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	levels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(levels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", levels))
	}

	formats := []string{FormatAuto, FormatText, FormatJSON}
	if !slices.Contains(formats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: %v", formats))
	}

	if !slices.Contains(transportModes, c.Transport.Mode) {
		errs = append(errs, fmt.Errorf("transport.mode must be one of: %v", transportModes))
	}

	includes := []string{"shown", "all"}
	if !slices.Contains(includes, c.Fetch.IncludeColumns) {
		errs = append(errs, fmt.Errorf("fetch.include_columns must be one of: %v", includes))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// BinaryPath returns the full path to a widget binary.
// It looks in Paths.Bin first, then falls back to exec.LookPath.
// Names containing a path separator are returned as given.
func (c *Config) BinaryPath(name string) (string, error) {
	if filepath.Base(name) != name {
		return name, nil
	}

	// If Bin is configured, look there first.
	if c.Paths.Bin != "" {
		binPath := filepath.Join(c.Paths.Bin, name)
		if _, err := os.Stat(binPath); err == nil {
			return binPath, nil
		}
	}

	// Fall back to PATH lookup.
	path, err := exec.LookPath(name)
	if err != nil {
		if c.Paths.Bin != "" {
			return "", fmt.Errorf("%s not found in %s or PATH", name, c.Paths.Bin)
		}
		return "", fmt.Errorf("%s not found in PATH", name)
	}
	return path, nil
}
