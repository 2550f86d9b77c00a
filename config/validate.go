package config

import (
	"fmt"
	"math"

	"imgdup/imageprocessor"
	"imgdup/logging"
	"imgdup/report"
)

// ConfigurationError reports an unusable setting. It is fatal and detected
// before any image is processed.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateHashing(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScan() error {
	if c.Dir == "" {
		return &ConfigurationError{Field: "dir", Reason: "must be set"}
	}
	if c.Threads < 0 {
		return &ConfigurationError{Field: "threads", Reason: fmt.Sprintf("must not be negative, got %d", c.Threads)}
	}
	if c.Limit < 0 {
		return &ConfigurationError{Field: "limit", Reason: fmt.Sprintf("must not be negative, got %d", c.Limit)}
	}
	return nil
}

func (c *Config) validateHashing() error {
	if c.HashSize <= 0 {
		return &ConfigurationError{Field: "hash_size", Reason: fmt.Sprintf("must be positive, got %d", c.HashSize)}
	}
	if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) {
		return &ConfigurationError{Field: "threshold", Reason: fmt.Sprintf("must be a finite number, got %v", c.Threshold)}
	}

	known := false
	for _, name := range imageprocessor.Hashers() {
		if c.Hasher == name {
			known = true
			break
		}
	}
	if !known {
		return &ConfigurationError{Field: "hasher", Reason: fmt.Sprintf("unknown hasher %q (want one of %v)", c.Hasher, imageprocessor.Hashers())}
	}
	if err := imageprocessor.CheckSettings(c.Hasher, c.HashSettings()); err != nil {
		return &ConfigurationError{Field: "hash_size", Reason: err.Error()}
	}
	return nil
}

func (c *Config) validateOutput() error {
	if _, err := report.ParseFormat(c.Output.Format); err != nil {
		return &ConfigurationError{Field: "output.format", Reason: err.Error()}
	}
	if c.Output.JSONIndent < 0 {
		return &ConfigurationError{Field: "output.json_indent", Reason: fmt.Sprintf("must not be negative, got %d", c.Output.JSONIndent)}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return &ConfigurationError{Field: "logging.level", Reason: err.Error()}
	}
	switch c.Logging.Format {
	case "", "text", "json":
		return nil
	default:
		return &ConfigurationError{Field: "logging.format", Reason: fmt.Sprintf("unknown log format %q (want text or json)", c.Logging.Format)}
	}
}
