package job

import (
	"fmt"
	"strings"
)

// ValidationError is a single problem found while checking a job.
type ValidationError struct {
	Field   string   // The job field (e.g., "timescale")
	Message string   // Human-readable error message
	Value   string   // The invalid value (if present)
	Allowed []string // For enum errors, the allowed values
}

// FormatError formats a ValidationError into a human-readable error message.
func FormatError(err ValidationError) string {
	if len(err.Allowed) > 0 {
		return fmt.Sprintf("%s: '%s' is not valid, must be one of: %s",
			err.Field, err.Value, strings.Join(err.Allowed, ", "))
	}
	if err.Value != "" {
		return fmt.Sprintf("%s: %s: %s", err.Field, err.Message, err.Value)
	}
	return fmt.Sprintf("%s: %s", err.Field, err.Message)
}

// ConfigError reports every problem that prevents a job from running. No
// subprocess is started when a ConfigError is returned.
type ConfigError struct {
	Errors []ValidationError
}

// NewConfigError creates a ConfigError holding a single problem.
func NewConfigError(field, message, value string) *ConfigError {
	return &ConfigError{Errors: []ValidationError{{Field: field, Message: message, Value: value}}}
}

func (e *ConfigError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "invalid configuration"
	case 1:
		return FormatError(e.Errors[0])
	}
	messages := make([]string, len(e.Errors))
	for i, verr := range e.Errors {
		messages[i] = FormatError(verr)
	}
	return fmt.Sprintf("%d configuration errors: %s", len(e.Errors), strings.Join(messages, "; "))
}

// Messages returns one formatted line per problem.
func (e *ConfigError) Messages() []string {
	messages := make([]string, len(e.Errors))
	for i, verr := range e.Errors {
		messages[i] = FormatError(verr)
	}
	return messages
}
