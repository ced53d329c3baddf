package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // The config field path (e.g., "simulator.launch_timeout")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation
// errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Simulator.LaunchTimeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "simulator.launch_timeout",
			Value:   c.Simulator.LaunchTimeout,
			Message: "must not be negative",
		})
	}
	if c.Simulator.CommandTimeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "simulator.command_timeout",
			Value:   c.Simulator.CommandTimeout,
			Message: "must not be negative",
		})
	}

	// Unix socket paths are limited to roughly 104 bytes on most platforms;
	// leave room for the socket file name.
	if len(c.Simulator.SocketDir) > 80 {
		errors = append(errors, ValidationError{
			Field:   "simulator.socket_dir",
			Value:   c.Simulator.SocketDir,
			Message: "path too long for a unix socket directory",
		})
	}

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
