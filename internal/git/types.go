package git

import (
	"fmt"

	"github.com/mxcd/tpd-github/internal/plan"
)

// PullRequestRequest represents everything needed to open or refresh a pull request
type PullRequestRequest struct {
	Repo    string
	Message string
	Branch  string
	Title   string
	Body    string
	Changes map[string]*plan.ChangeEntry
	// BaseBranch is the branch to merge into; empty means the repository default branch
	BaseBranch string
	Draft      bool
	Labels     []string
}

// NewPullRequestRequest creates a request from a plan, targeting the default branch
func NewPullRequestRequest(p *plan.PullRequestPlan) *PullRequestRequest {
	return &PullRequestRequest{
		Repo:    p.Repo,
		Message: p.Message,
		Branch:  p.Branch,
		Title:   p.Title,
		Body:    p.Body,
		Changes: p.Changes,
	}
}

// PullRequestRef identifies a pull request on the hosting service
type PullRequestRef struct {
	Number  int
	URL     string
	Updated bool
}

// APIError is returned when the GitHub API answers with an unexpected status
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("failed to %s, status: %d, body: %s", e.Operation, e.StatusCode, e.Body)
}

// UnsupportedModeError is returned for a file mode that has no git equivalent
type UnsupportedModeError struct {
	Path string
	Mode string
}

func (e *UnsupportedModeError) Error() string {
	return fmt.Sprintf("unsupported file mode '%s' for %s", e.Mode, e.Path)
}
