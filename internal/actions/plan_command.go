package actions

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Plan shows the branch, title and changes of every pull request Persist would open
func Plan(ctx context.Context, options *Options) (*PersistResult, error) {
	config, err := loadConfiguration(options)
	if err != nil {
		return nil, err
	}

	descriptors, err := loadTemplates(options)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load templates")
		return nil, fmt.Errorf("template load error: %w", err)
	}

	result := newPersister(config, options).Plan(ctx, descriptors)

	if err := outputPlan(options.output(), result, options.outputFormat()); err != nil {
		return nil, fmt.Errorf("output error: %w", err)
	}
	return result, nil
}
