package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the loaded configuration against the struct tags. The
// service refuses to start on any failure: a half-valid config that boots
// and then fails at the first delivery run is worse than not booting.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	return nil
}

// formatValidationErrors rewrites validator output into one message listing
// every failing field, so a broken deployment shows all problems at once
// instead of one per restart.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	lines := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		lines = append(lines, formatFieldError(fieldErr))
	}

	return fmt.Errorf("config validation failed:\n  %s", strings.Join(lines, "\n  "))
}

func formatFieldError(e validator.FieldError) string {
	field := formatFieldPath(e.Namespace())

	switch tag := e.Tag(); tag {
	case "required":
		return field + " is required"
	case "required_if":
		return field + " is required when " + e.Param()
	case "min":
		return field + " must be at least " + e.Param()
	case "max":
		return field + " must be at most " + e.Param()
	case "oneof":
		return field + " must be one of: " + e.Param()
	case "url":
		return field + " must be a valid URL"
	default:
		return field + " failed validation: " + tag
	}
}

// formatFieldPath turns a validator namespace like "Config.Server.Port" into
// the "server.port" form the YAML and env vars use, so the message names the
// key the operator has to fix.
func formatFieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		namespace = rest
	}

	return strings.ToLower(namespace)
}
