package plan

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mxcd/tpd-github/internal/template"
	"github.com/rs/zerolog/log"
)

// FallbackMessage is used as commit message and PR title when the local repository cannot be described
const FallbackMessage = "Generated with templator"

// RepoInfoProvider reads the remote URL and short commit hash of a local working copy
type RepoInfoProvider interface {
	RemoteAndCommit(ctx context.Context, baseDirectory string) (remoteURL string, commit string, err error)
}

// ChangeEntry is the new content of a file. A nil *ChangeEntry in a change set deletes the file.
type ChangeEntry struct {
	Mode    string `json:"mode" yaml:"mode"`
	Content string `json:"content" yaml:"content"`
}

// PullRequestPlan is everything needed to open the pull request for one repository
type PullRequestPlan struct {
	Repo    string                  `json:"repo" yaml:"repo"`
	Message string                  `json:"message" yaml:"message"`
	Title   string                  `json:"title" yaml:"title"`
	Branch  string                  `json:"branch" yaml:"branch"`
	Body    string                  `json:"body" yaml:"body"`
	Changes map[string]*ChangeEntry `json:"changes" yaml:"changes"`
}

// Paths returns the changed file paths in sorted order
func (p *PullRequestPlan) Paths() []string {
	paths := make([]string, 0, len(p.Changes))
	for path := range p.Changes {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Builder turns repository batches into pull request plans
type Builder struct {
	repoInfo      RepoInfoProvider
	baseDirectory string
}

// NewBuilder creates a plan builder. repoInfo may be nil, in which case every
// plan carries the fallback message.
func NewBuilder(repoInfo RepoInfoProvider, baseDirectory string) *Builder {
	return &Builder{
		repoInfo:      repoInfo,
		baseDirectory: baseDirectory,
	}
}

// Build derives the pull request plan for a batch
func (b *Builder) Build(ctx context.Context, batch *RepoBatch) (*PullRequestPlan, error) {
	if batch == nil || len(batch.Actions) == 0 {
		repo := ""
		if batch != nil {
			repo = batch.Repo
		}
		return nil, &EmptyBatchError{Repo: repo}
	}

	message := b.Message(ctx)

	plan := &PullRequestPlan{
		Repo:    batch.Repo,
		Message: message,
		Title:   message,
		Branch:  BranchName(batch.Actions),
		Body:    Body(batch.Actions),
		Changes: Changes(batch.Actions),
	}

	log.Debug().
		Str("repo", plan.Repo).
		Str("branch", plan.Branch).
		Int("changes", len(plan.Changes)).
		Msg("Built pull request plan")

	return plan, nil
}

// Message describes where the generated changes come from, falling back to
// FallbackMessage when the local repository cannot be inspected
func (b *Builder) Message(ctx context.Context) string {
	if b.repoInfo == nil {
		return FallbackMessage
	}

	remoteURL, commit, err := b.repoInfo.RemoteAndCommit(ctx, b.baseDirectory)
	if err != nil {
		log.Warn().Err(err).Str("baseDir", b.baseDirectory).Msg("Could not read local repository information")
		return FallbackMessage
	}

	slug, err := ParseRemoteSlug(remoteURL)
	if err != nil {
		log.Warn().Err(err).Str("baseDir", b.baseDirectory).Msg("Could not read local repository information")
		return FallbackMessage
	}

	return fmt.Sprintf("Generated from %s@%s", slug, commit)
}

// Body lists generated and deleted paths in two sections. Every occurrence is listed.
func Body(actions []template.Action) string {
	generated := make([]string, 0)
	deleted := make([]string, 0)

	for _, action := range actions {
		switch a := action.(type) {
		case *template.Generate:
			generated = append(generated, a.Filepath)
		case *template.Delete:
			deleted = append(deleted, a.Filepath)
		}
	}

	lines := make([]string, 0, len(actions)+2)
	if len(generated) > 0 {
		lines = append(lines, "Generate:")
		lines = append(lines, generated...)
	}
	if len(deleted) > 0 {
		lines = append(lines, "Delete:")
		lines = append(lines, deleted...)
	}

	return strings.Join(lines, "\n")
}

// Changes builds the change set of a batch. Later actions on the same path replace earlier ones.
func Changes(actions []template.Action) map[string]*ChangeEntry {
	changes := make(map[string]*ChangeEntry, len(actions))

	for _, action := range actions {
		switch a := action.(type) {
		case *template.Generate:
			mode := a.Mode
			if mode == "" {
				mode = template.DefaultMode
			}
			changes[a.Filepath] = &ChangeEntry{Mode: mode, Content: a.Content}
		case *template.Delete:
			changes[a.Filepath] = nil
		}
	}

	return changes
}
