package actions

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Persist loads the templates and opens one pull request per destination repository.
// The returned error covers setup failures only, per repository failures are part of the result.
func Persist(ctx context.Context, options *Options) (*PersistResult, error) {
	config, err := loadConfiguration(options)
	if err != nil {
		return nil, err
	}

	descriptors, err := loadTemplates(options)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load templates")
		return nil, fmt.Errorf("template load error: %w", err)
	}
	log.Debug().Int("templates", len(descriptors)).Msg("Templates loaded")

	persister := newPersister(config, options)
	result := persister.Plan(ctx, descriptors)
	if result.HasInvalidTemplates() || result.Failure != "" {
		return result, outputResult(options.output(), result, options.outputFormat())
	}

	if config.Interactive {
		if err := outputPlan(options.output(), result, OutputFormatTable); err != nil {
			return nil, fmt.Errorf("output error: %w", err)
		}

		confirm := options.Confirm
		if confirm == nil {
			confirm = SurveyConfirm
		}
		confirmed, err := confirm(result)
		if err != nil {
			return nil, err
		}
		if !confirmed {
			log.Info().Msg("No pull request opened")
			return result, ErrAborted
		}
	}

	persister.Publish(ctx, result)

	if err := outputResult(options.output(), result, options.outputFormat()); err != nil {
		return nil, fmt.Errorf("output error: %w", err)
	}

	if result.Failed() {
		log.Warn().Msg("One or more repositories failed")
	} else {
		log.Info().Int("repositories", len(result.Repositories)).Msg("All pull requests opened")
	}
	return result, nil
}
