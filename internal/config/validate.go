package config

import (
	"fmt"
	"path/filepath"
	"regexp"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a configuration for errors and returns warnings for
// non-fatal issues.
func Validate(cfg *Config) (warnings []string, err error) {
	if err := validatePattern(cfg.DefaultPattern); err != nil {
		return nil, err
	}
	if cfg.MaxIncludeDepth < 1 {
		return nil, &ValidationError{Field: "max_include_depth", Message: "must be at least 1"}
	}
	if cfg.AsyncDelayMS != nil && *cfg.AsyncDelayMS < 0 {
		return nil, &ValidationError{Field: "async_delay_ms", Message: "must not be negative"}
	}
	if err := validatePanel(cfg.Panel); err != nil {
		return nil, err
	}

	if !ResolveCapabilities(cfg.HostVersion).Deferred {
		warnings = append(warnings, fmt.Sprintf(
			"host_version %d predates %d: deferred and async execution are disabled",
			cfg.HostVersion, ModernHostVersion))
	}
	return warnings, nil
}

func validatePattern(pattern string) error {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return &ValidationError{
			Field:   "default_pattern",
			Message: fmt.Sprintf("invalid glob %q: %v", pattern, err),
		}
	}
	return nil
}

func validatePanel(panel *PanelConfig) error {
	if panel == nil {
		return nil
	}
	regexes := []struct{ field, expr string }{
		{"panel.file_regex", panel.FileRegex},
		{"panel.line_regex", panel.LineRegex},
	}
	for _, re := range regexes {
		if re.expr == "" {
			continue
		}
		if _, err := regexp.Compile(re.expr); err != nil {
			return &ValidationError{Field: re.field, Message: fmt.Sprintf("invalid regular expression: %v", err)}
		}
	}
	return nil
}
