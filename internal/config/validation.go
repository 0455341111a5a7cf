package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateArchive()...)
	errors = append(errors, c.validateSeeds()...)

	if c.Store.Enabled {
		errors = append(errors, c.validateStore()...)
	}

	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateArchive() ValidationErrors {
	var errors ValidationErrors

	if len(c.Archive.Architectures) == 0 {
		errors = append(errors, ValidationError{
			Field:   "archive.architectures",
			Message: "at least one architecture is required",
		})
	}
	for i, arch := range c.Archive.Architectures {
		if strings.TrimSpace(arch) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("archive.architectures[%d]", i),
				Message: "architecture name cannot be empty",
			})
		}
	}

	if len(c.Archive.Packages) == 0 {
		errors = append(errors, ValidationError{
			Field:   "archive.packages",
			Message: "at least one Packages index is required",
		})
	}

	if len(c.Archive.Sources) == 0 {
		errors = append(errors, ValidationError{
			Field:   "archive.sources",
			Message: "at least one Sources index is required",
		})
	}

	return errors
}

func (c *Config) validateSeeds() ValidationErrors {
	var errors ValidationErrors

	if len(c.Seeds.Bases) == 0 {
		errors = append(errors, ValidationError{
			Field:   "seeds.bases",
			Message: "at least one seed base is required",
		})
	}

	if c.Seeds.Branch == "" {
		errors = append(errors, ValidationError{
			Field:   "seeds.branch",
			Message: "branch is required",
		})
	}

	return errors
}

func (c *Config) validateStore() ValidationErrors {
	var errors ValidationErrors
	s := c.Store

	if s.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "store.host",
			Message: "host is required when store is enabled",
		})
	}

	if s.Port <= 0 || s.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "store.port",
			Message: "port must be between 1 and 65535",
		})
	}

	if s.User == "" {
		errors = append(errors, ValidationError{
			Field:   "store.user",
			Message: "user is required when store is enabled",
		})
	}

	if s.Database == "" {
		errors = append(errors, ValidationError{
			Field:   "store.database",
			Message: "database is required when store is enabled",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[s.TLS] {
		errors = append(errors, ValidationError{
			Field:   "store.tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if s.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "store.max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if s.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "store.max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	if s.LockTimeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "store.lock_timeout",
			Message: "lock_timeout cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
