// Package config loads and validates the supervisor configuration via viper.
// Configuration is read from a YAML file, overridable through SIMSUP_-prefixed
// environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete supervisor configuration.
type Config struct {
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// SimulatorConfig controls how simulator processes are launched and driven.
type SimulatorConfig struct {
	// Binary is the path to the simulator executable.
	Binary string `mapstructure:"binary"`
	// Args are extra arguments passed to the simulator before the project
	// and config arguments.
	Args []string `mapstructure:"args"`
	// SocketDir is the directory for control sockets. Unix socket paths are
	// length-limited, so keep this short. Empty means the OS temp directory.
	SocketDir string `mapstructure:"socket_dir"`
	// LaunchTimeout bounds the readiness handshake (default: 30s).
	LaunchTimeout time.Duration `mapstructure:"launch_timeout"`
	// CommandTimeout bounds each reset/run command exchange (default: 10s).
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

// LoggingConfig controls debug logging behavior.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info").
	Level string `mapstructure:"level"`
	// File is the log file path. Empty logs to stderr.
	File string `mapstructure:"file"`
}

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Simulator: SimulatorConfig{
			LaunchTimeout:  30 * time.Second,
			CommandTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers the default configuration values with viper so they
// apply even without a config file.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("simulator.binary", defaults.Simulator.Binary)
	viper.SetDefault("simulator.args", defaults.Simulator.Args)
	viper.SetDefault("simulator.socket_dir", defaults.Simulator.SocketDir)
	viper.SetDefault("simulator.launch_timeout", defaults.Simulator.LaunchTimeout)
	viper.SetDefault("simulator.command_timeout", defaults.Simulator.CommandTimeout)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.file", defaults.Logging.File)
}

// Load unmarshals and validates the current viper configuration.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "simsup")
	}
	// Fall back to ~/.config/simsup
	home, err := os.UserHomeDir()
	if err != nil {
		return ".simsup"
	}
	return filepath.Join(home, ".config", "simsup")
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
