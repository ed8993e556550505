package actions

import (
	"context"
	"io"
	"os"

	"github.com/mxcd/tpd-github/internal/configuration"
	"github.com/mxcd/tpd-github/internal/git"
	"github.com/mxcd/tpd-github/internal/plan"
	"github.com/mxcd/tpd-github/internal/template"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

// Publisher opens or refreshes a pull request on the hosting service
type Publisher interface {
	OpenPR(ctx context.Context, request *git.PullRequestRequest) (*git.PullRequestRef, error)
}

// Persister turns template descriptors into one pull request per destination repository
type Persister struct {
	config         *configuration.Config
	publisher      Publisher
	builder        *plan.Builder
	progressOutput io.Writer
}

// NewPersister creates a Persister. repoInfo may be nil, in which case every
// pull request carries the fallback message.
func NewPersister(config *configuration.Config, publisher Publisher, repoInfo plan.RepoInfoProvider) *Persister {
	if config == nil {
		config = configuration.NewDefaultConfig()
	}
	return &Persister{
		config:         config,
		publisher:      publisher,
		builder:        plan.NewBuilder(repoInfo, config.BaseDirectory),
		progressOutput: os.Stderr,
	}
}

// SetProgressOutput redirects the publish progress bar, io.Discard hides it
func (p *Persister) SetProgressOutput(w io.Writer) {
	p.progressOutput = w
}

// Persist validates all descriptors and opens one pull request per repository.
// If any descriptor is invalid nothing is published and only the invalid ones are reported.
// Failures never escape, they are recorded in the result slot of their repository.
func (p *Persister) Persist(ctx context.Context, descriptors []*template.Descriptor) *PersistResult {
	result := p.Plan(ctx, descriptors)
	if result.HasInvalidTemplates() || result.Failure != "" {
		return result
	}
	p.Publish(ctx, result)
	return result
}

// Plan validates the descriptors and builds the pull request plan for every repository without publishing
func (p *Persister) Plan(ctx context.Context, descriptors []*template.Descriptor) *PersistResult {
	result := &PersistResult{}

	invalid, indexes := template.FindInvalid(descriptors)
	if len(invalid) > 0 {
		log.Warn().Int("invalid", len(invalid)).Int("total", len(descriptors)).Msg("Invalid templates, no pull request will be opened")
		result.InvalidTemplates = invalid
		result.InvalidIndexes = indexes
		return result
	}

	actions, err := template.DecodeAll(descriptors)
	if err != nil {
		log.Error().Err(err).Msg("Failed to decode templates")
		result.Failure = err.Error()
		return result
	}

	batches, err := plan.GroupByRepo(actions)
	if err != nil {
		log.Error().Err(err).Msg("Failed to group templates by repository")
		result.Failure = err.Error()
		return result
	}

	for _, batch := range batches {
		repository := &RepositoryResult{Repo: batch.Repo}

		pullRequestPlan, err := p.builder.Build(ctx, batch)
		if err != nil {
			log.Error().Err(err).Str("repo", batch.Repo).Msg("Failed to build pull request plan")
			repository.Error = err.Error()
		} else {
			repository.Plan = pullRequestPlan
		}

		result.Repositories = append(result.Repositories, repository)
	}

	log.Debug().Int("repositories", len(result.Repositories)).Msg("Planned pull requests")
	return result
}

// Publish opens the pull request for every planned repository of result, one after another.
// A failing repository does not stop the remaining ones.
func (p *Persister) Publish(ctx context.Context, result *PersistResult) {
	pending := make([]*RepositoryResult, 0, len(result.Repositories))
	for _, repository := range result.Repositories {
		if repository.Plan != nil && repository.Error == "" {
			pending = append(pending, repository)
		}
	}

	if len(pending) == 0 {
		return
	}

	bar := progressbar.NewOptions(len(pending),
		progressbar.OptionSetWriter(p.progressOutput),
		progressbar.OptionSetDescription("Opening pull requests:"),
		progressbar.OptionSetItsString("repo"),
		progressbar.OptionShowIts(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	for _, repository := range pending {
		bar.Describe("Opening pull request for " + repository.Repo)

		request := git.NewPullRequestRequest(repository.Plan)
		request.Draft = p.config.Draft
		request.Labels = p.config.Labels

		ref, err := p.publisher.OpenPR(ctx, request)
		if err != nil {
			log.Error().Err(err).Str("repo", repository.Repo).Msg("Failed to open pull request")
			repository.Error = err.Error()
		} else {
			log.Debug().Str("repo", repository.Repo).Str("url", ref.URL).Bool("updated", ref.Updated).Msg("Opened pull request")
			repository.PullRequest = ref
		}

		bar.Add(1)
	}
	bar.Finish()
}
