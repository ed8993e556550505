package configuration

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult contains the results of configuration validation
type ValidationResult struct {
	Valid  bool
	Errors []*ValidationError
}

// AddError adds a validation error to the result
func (r *ValidationResult) AddError(field, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, &ValidationError{
		Field:   field,
		Message: message,
	})
}

// Error joins all validation errors into a single message
func (r *ValidationResult) Error() string {
	messages := make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidateConfiguration performs validation on the configuration
// The token is not checked here, a missing token surfaces as a per-repository API error
func ValidateConfiguration(config *Config) *ValidationResult {
	result := &ValidationResult{
		Valid:  true,
		Errors: make([]*ValidationError, 0),
	}

	if strings.TrimSpace(config.BaseDirectory) == "" {
		result.AddError("baseDirectory", "base directory cannot be empty")
	}

	if config.APIURL != "" {
		parsed, err := url.Parse(config.APIURL)
		if err != nil {
			result.AddError("apiUrl", fmt.Sprintf("invalid URL: %v", err))
		} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
			result.AddError("apiUrl", fmt.Sprintf("unsupported scheme: %s", parsed.Scheme))
		} else if parsed.Host == "" {
			result.AddError("apiUrl", "URL must include a host")
		}
	}

	labelNames := make(map[string]bool)
	for i, label := range config.Labels {
		field := fmt.Sprintf("labels[%d]", i)
		if strings.TrimSpace(label) == "" {
			result.AddError(field, "label cannot be empty")
			continue
		}
		if labelNames[label] {
			result.AddError(field, fmt.Sprintf("duplicate label: %s", label))
		}
		labelNames[label] = true
	}

	return result
}
