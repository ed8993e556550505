package actions

import (
	"fmt"

	"github.com/mxcd/tpd-github/internal/template"
	"github.com/rs/zerolog/log"
)

// Validate checks the configuration and all templates without touching any repository.
// It returns the invalid templates, in input order.
func Validate(options *Options) ([]*template.Descriptor, error) {
	if _, err := loadConfiguration(options); err != nil {
		return nil, err
	}

	descriptors, err := loadTemplates(options)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load templates")
		return nil, fmt.Errorf("template load error: %w", err)
	}

	invalid, indexes := template.FindInvalid(descriptors)

	if err := outputInvalidTemplates(options.output(), invalid, indexes, options.outputFormat()); err != nil {
		log.Error().Err(err).Msg("Failed to output validation results")
		return nil, fmt.Errorf("output error: %w", err)
	}

	if len(invalid) == 0 {
		log.Info().Int("templates", len(descriptors)).Msg("Templates are valid")
	}
	return invalid, nil
}
