package actions

import (
	"encoding/json"
	"fmt"

	"github.com/mxcd/tpd-github/internal/git"
	"github.com/mxcd/tpd-github/internal/plan"
	"github.com/mxcd/tpd-github/internal/template"
)

// RepositoryResult is the outcome for one destination repository
type RepositoryResult struct {
	Repo        string
	Plan        *plan.PullRequestPlan
	PullRequest *git.PullRequestRef
	// Error holds the message of the failure that stopped this repository
	Error string
}

// Value is the pull request URL on success and the error text otherwise
func (r *RepositoryResult) Value() string {
	if r.Error != "" {
		return r.Error
	}
	if r.PullRequest != nil {
		return r.PullRequest.URL
	}
	return ""
}

// PersistResult is either the list of invalid templates or one outcome per repository in first-seen order
type PersistResult struct {
	InvalidTemplates []*template.Descriptor
	// InvalidIndexes holds the input position of each invalid template
	InvalidIndexes []int
	Repositories     []*RepositoryResult
	// Failure is set when the templates could not be turned into repository batches at all
	Failure string
}

// HasInvalidTemplates reports whether publishing was skipped because of invalid input
func (r *PersistResult) HasInvalidTemplates() bool {
	return len(r.InvalidTemplates) > 0
}

// Failed reports whether any repository, or the run as a whole, ended in an error
func (r *PersistResult) Failed() bool {
	if r.Failure != "" {
		return true
	}
	for _, repository := range r.Repositories {
		if repository.Error != "" {
			return true
		}
	}
	return false
}

// Plans returns the plans of all repositories that could be planned
func (r *PersistResult) Plans() []*plan.PullRequestPlan {
	plans := make([]*plan.PullRequestPlan, 0, len(r.Repositories))
	for _, repository := range r.Repositories {
		if repository.Plan != nil {
			plans = append(plans, repository.Plan)
		}
	}
	return plans
}

// Map returns repository -> pull request URL or error text
func (r *PersistResult) Map() map[string]string {
	values := make(map[string]string, len(r.Repositories))
	for _, repository := range r.Repositories {
		values[repository.Repo] = repository.Value()
	}
	return values
}

// MarshalJSON renders {"invalidTemplates": [...]} when publishing was skipped and
// {"org/repo": "<url or error>"} otherwise
func (r *PersistResult) MarshalJSON() ([]byte, error) {
	if r.HasInvalidTemplates() {
		return json.Marshal(map[string]interface{}{
			"invalidTemplates": r.InvalidTemplates,
		})
	}
	if r.Failure != "" {
		return json.Marshal(map[string]string{"error": r.Failure})
	}
	return json.Marshal(r.Map())
}

// MarshalYAML renders the same shapes as MarshalJSON
func (r *PersistResult) MarshalYAML() (interface{}, error) {
	data, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("failed to convert result for YAML: %w", err)
	}
	return generic, nil
}
