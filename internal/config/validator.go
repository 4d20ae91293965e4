package config

import (
	"fmt"
	"net"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "wait.poll_interval_ms")
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

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateWait()...)
	errors = append(errors, c.validateStore()...)
	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateWait validates the WaitConfig
func (c *Config) validateWait() []ValidationError {
	var errors []ValidationError
	w := c.Wait

	if w.HeartbeatIntervalSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "wait.heartbeat_interval_seconds",
			Value:   w.HeartbeatIntervalSeconds,
			Message: "must be positive",
		})
	}

	if w.DefaultTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "wait.default_timeout_seconds",
			Value:   w.DefaultTimeoutSeconds,
			Message: "must be positive",
		})
	}

	// Sub-10ms polling just burns CPU on store reads
	const minPollMs = 10
	if w.PollIntervalMs < minPollMs {
		errors = append(errors, ValidationError{
			Field:   "wait.poll_interval_ms",
			Value:   w.PollIntervalMs,
			Message: fmt.Sprintf("must be at least %dms", minPollMs),
		})
	} else if w.HeartbeatIntervalSeconds > 0 && w.PollIntervalMs > w.HeartbeatIntervalSeconds*1000 {
		errors = append(errors, ValidationError{
			Field:   "wait.poll_interval_ms",
			Value:   w.PollIntervalMs,
			Message: "must not exceed the heartbeat interval",
		})
	}

	if w.MaxTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "wait.max_timeout_seconds",
			Value:   w.MaxTimeoutSeconds,
			Message: "must be non-negative (0 disables the cap)",
		})
	} else if w.MaxTimeoutSeconds > 0 && w.DefaultTimeoutSeconds > w.MaxTimeoutSeconds {
		errors = append(errors, ValidationError{
			Field:   "wait.default_timeout_seconds",
			Value:   w.DefaultTimeoutSeconds,
			Message: fmt.Sprintf("exceeds wait.max_timeout_seconds (%d)", w.MaxTimeoutSeconds),
		})
	}

	return errors
}

// validateStore validates the StoreConfig
func (c *Config) validateStore() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidStoreBackends(), c.Store.Backend) {
		errors = append(errors, ValidationError{
			Field:   "store.backend",
			Value:   c.Store.Backend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidStoreBackends(), ", ")),
		})
	}

	if strings.ContainsRune(c.Store.Path, 0) {
		errors = append(errors, ValidationError{
			Field:   "store.path",
			Value:   c.Store.Path,
			Message: "contains a NUL byte",
		})
	}

	return errors
}

// validateServer validates the ServerConfig
func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		errors = append(errors, ValidationError{
			Field:   "server.addr",
			Value:   c.Server.Addr,
			Message: "must be host:port",
		})
	}

	if strings.TrimSpace(c.Server.Name) == "" {
		errors = append(errors, ValidationError{
			Field:   "server.name",
			Value:   c.Server.Name,
			Message: "must not be empty",
		})
	}

	if c.Server.WriteTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.write_timeout_seconds",
			Value:   c.Server.WriteTimeoutSeconds,
			Message: "must be positive",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	// Reasonable upper bound for log file size
	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
