package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "server.port")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
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

// ValidRelationModes returns the analyzer relation modes
func ValidRelationModes() []string {
	return []string{"typed", "as-fs", "fs-only"}
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid log handler formats
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// ValidHistoryDrivers returns the database drivers the history store accepts
func ValidHistoryDrivers() []string {
	return []string{"sqlite", "postgres", "mysql"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateAnalysis()...)
	errors = append(errors, c.validateOutput()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateHistory()...)

	if c.Claude.MaxTokens < 1 {
		errors = append(errors, ValidationError{
			Field:   "claude.max_tokens",
			Value:   c.Claude.MaxTokens,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateAnalysis() []ValidationError {
	if slices.Contains(ValidRelationModes(), strings.ToLower(c.Analysis.Relations)) {
		return nil
	}
	return []ValidationError{{
		Field:   "analysis.relations",
		Value:   c.Analysis.Relations,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidRelationModes(), ", ")),
	}}
}

func (c *Config) validateOutput() []ValidationError {
	var errors []ValidationError

	// A layout without any reference-time element formats every time alike
	other := time.Date(1999, time.November, 28, 23, 59, 58, 0, time.UTC)
	ref := time.Date(2006, time.January, 2, 15, 4, 5, 0, time.UTC)
	if c.Output.DateFormat == "" || other.Format(c.Output.DateFormat) == ref.Format(c.Output.DateFormat) {
		errors = append(errors, ValidationError{
			Field:   "output.date_format",
			Value:   c.Output.DateFormat,
			Message: "must be a Go time layout such as 2006-01-02",
		})
	}

	if c.Chart.Width < 10 || c.Chart.Width > 400 {
		errors = append(errors, ValidationError{
			Field:   "chart.width",
			Value:   c.Chart.Width,
			Message: "must be between 10 and 400",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Logging.Format)) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Value:   c.Server.Port,
			Message: "must be between 1 and 65535",
		})
	}
	if c.Server.ReadTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.read_timeout",
			Value:   c.Server.ReadTimeout,
			Message: "must be positive",
		})
	}
	if c.Server.WriteTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.write_timeout",
			Value:   c.Server.WriteTimeout,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateHistory() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidHistoryDrivers(), c.History.Driver) {
		errors = append(errors, ValidationError{
			Field:   "history.driver",
			Value:   c.History.Driver,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidHistoryDrivers(), ", ")),
		})
	}
	if c.History.Enabled && c.History.DSN == "" {
		errors = append(errors, ValidationError{
			Field:   "history.dsn",
			Value:   c.History.DSN,
			Message: "required when history is enabled",
		})
	}

	return errors
}
