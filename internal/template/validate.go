package template

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// ValidationError names the first descriptor field that failed validation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Check returns the first validation failure of the descriptor, or nil if it is valid
func Check(d *Descriptor) *ValidationError {
	if d == nil {
		return &ValidationError{Field: "template", Message: "descriptor is empty"}
	}
	if d.malformed != "" {
		return &ValidationError{Field: d.malformed, Message: "value has an unexpected type"}
	}
	if !d.TemplateSet {
		return &ValidationError{Field: "template", Message: "template is required (use null to delete a file)"}
	}
	if d.Destination == nil {
		return &ValidationError{Field: "destination", Message: "destination is required"}
	}
	if d.Destination.Type != DestinationTypeGitHub {
		return &ValidationError{
			Field:   "destination.type",
			Message: fmt.Sprintf("destination type must be %s, got '%s'", DestinationTypeGitHub, d.Destination.Type),
		}
	}
	if d.Destination.Params == nil {
		return &ValidationError{Field: "destination.params", Message: "destination params are required"}
	}
	if d.Destination.Params.Repo == "" {
		return &ValidationError{Field: "destination.params.repo", Message: "repository cannot be empty"}
	}
	if d.Destination.Params.Filepath == "" {
		return &ValidationError{Field: "destination.params.filepath", Message: "filepath cannot be empty"}
	}
	if d.Template != nil && d.RenderedTemplate == nil {
		return &ValidationError{Field: "renderedTemplate", Message: "rendered template is required unless template is null"}
	}
	return nil
}

// IsValid reports whether the descriptor can be turned into a pull request change
func IsValid(d *Descriptor) bool {
	if err := Check(d); err != nil {
		log.Debug().
			Str("field", err.Field).
			Str("repo", d.Repo()).
			Str("filepath", d.Filepath()).
			Msg("Template is missing one or more properties")
		return false
	}
	return true
}

// FilterInvalid returns every invalid descriptor, in input order
func FilterInvalid(descriptors []*Descriptor) []*Descriptor {
	invalid, _ := FindInvalid(descriptors)
	return invalid
}

// FindInvalid returns every invalid descriptor together with its position in descriptors
func FindInvalid(descriptors []*Descriptor) ([]*Descriptor, []int) {
	invalid := make([]*Descriptor, 0)
	indexes := make([]int, 0)
	for i, descriptor := range descriptors {
		if !IsValid(descriptor) {
			invalid = append(invalid, descriptor)
			indexes = append(indexes, i)
		}
	}
	return invalid, indexes
}
