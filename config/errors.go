package config

import (
	"fmt"
	"strings"
)

// ConfigError describes a configuration problem with actionable guidance.
// All messages are lowercase following Go conventions.
//
//nolint:revive // ConfigError is intentionally named for clarity in external API usage
type ConfigError struct {
	Field   string // config field path (e.g. "sink.endpoint")
	Message string // user-friendly error message (lowercase)
	Action  string // actionable instruction (lowercase), optional
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	parts := make([]string, 0, 3)
	if e.Field != "" {
		parts = append(parts, e.Field+":")
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Action != "" {
		parts = append(parts, e.Action)
	}
	return strings.Join(parts, " ")
}

// NewInvalidFieldError creates an error for an invalid configuration value.
func NewInvalidFieldError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewMissingFieldError creates an error for a required missing value.
func NewMissingFieldError(field, envVar string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: "required",
		Action:  fmt.Sprintf("set the %s environment variable or pass it explicitly", envVar),
	}
}
