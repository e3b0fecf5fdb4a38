package config

import (
	"errors"
	"strings"
)

// ConfigurationError reports missing or invalid settings, including absent
// credentials for a selected provider. It is raised before any stage runs.
type ConfigurationError struct {
	Role     Role
	Provider string
	Field    string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	parts := []string{"configuration error"}
	if e.Role != "" {
		parts = append(parts, "role "+string(e.Role))
	}
	if e.Provider != "" {
		parts = append(parts, "provider "+e.Provider)
	}
	if e.Field != "" {
		parts = append(parts, e.Field)
	}
	return strings.Join(parts, ": ") + ": " + e.Reason
}

// IsConfigurationError reports whether err wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
