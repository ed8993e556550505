package git

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mxcd/tpd-github/internal/plan"
	"github.com/rs/zerolog/log"
)

// DefaultAPIBaseURL is the public GitHub REST endpoint
const DefaultAPIBaseURL = "https://api.github.com"

var fileModes = map[string]string{
	"normal":     "100644",
	"executable": "100755",
	"symlink":    "120000",
	"100644":     "100644",
	"100755":     "100755",
	"120000":     "120000",
}

// GitHubClient handles GitHub API operations
type GitHubClient struct {
	Token      string
	BaseURL    string
	httpClient *http.Client
}

// NewGitHubClient creates a new GitHub client. An empty baseURL selects api.github.com.
func NewGitHubClient(token string, baseURL string) *GitHubClient {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &GitHubClient{
		Token:      token,
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// OpenPR commits the requested changes onto request.Branch in a single commit
// on top of the base branch, then creates a pull request or updates the open one for that branch
func (c *GitHubClient) OpenPR(ctx context.Context, request *PullRequestRequest) (*PullRequestRef, error) {
	owner, repo, err := splitRepo(request.Repo)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("repo", request.Repo).
		Str("branch", request.Branch).
		Int("changes", len(request.Changes)).
		Msg("Opening pull request")

	baseBranch := request.BaseBranch
	if baseBranch == "" {
		baseBranch, err = c.getDefaultBranch(ctx, owner, repo)
		if err != nil {
			return nil, err
		}
	}

	baseSHA, err := c.getBranchSHA(ctx, owner, repo, baseBranch)
	if err != nil {
		return nil, err
	}

	baseTree, err := c.getCommitTree(ctx, owner, repo, baseSHA)
	if err != nil {
		return nil, err
	}

	tree, err := c.createTree(ctx, owner, repo, baseTree, request)
	if err != nil {
		return nil, err
	}

	commit, err := c.createCommit(ctx, owner, repo, request.Message, tree, baseSHA)
	if err != nil {
		return nil, err
	}

	if err := c.setBranch(ctx, owner, repo, request.Branch, commit); err != nil {
		return nil, err
	}

	existing, err := c.FindOpenPullRequest(ctx, owner, repo, request.Branch)
	if err != nil {
		return nil, err
	}

	options := &PullRequestOptions{
		Title:      request.Title,
		Body:       request.Body,
		BaseBranch: baseBranch,
		HeadBranch: request.Branch,
		Labels:     request.Labels,
		Draft:      request.Draft,
	}

	if existing != nil {
		if err := c.UpdatePullRequest(ctx, owner, repo, existing.Number, options); err != nil {
			return nil, err
		}
		return &PullRequestRef{Number: existing.Number, URL: existing.HTMLURL, Updated: true}, nil
	}

	return c.CreatePullRequest(ctx, owner, repo, options)
}

// PullRequestOptions represents options for creating a pull request
type PullRequestOptions struct {
	Title      string
	Body       string
	BaseBranch string
	HeadBranch string
	Labels     []string
	Draft      bool
}

// PullRequest represents a GitHub pull request
type PullRequest struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
	State   string `json:"state"`
	Head    struct {
		Ref string `json:"ref"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
}

// CreatePullRequest creates a pull request on GitHub
func (c *GitHubClient) CreatePullRequest(ctx context.Context, owner, repo string, options *PullRequestOptions) (*PullRequestRef, error) {
	log.Debug().
		Str("title", options.Title).
		Str("base", options.BaseBranch).
		Str("head", options.HeadBranch).
		Msg("Creating GitHub pull request")

	requestBody := map[string]interface{}{
		"title": options.Title,
		"body":  options.Body,
		"base":  options.BaseBranch,
		"head":  options.HeadBranch,
		"draft": options.Draft,
	}

	var prResponse PullRequest
	path := fmt.Sprintf("/repos/%s/%s/pulls", owner, repo)
	if err := c.do(ctx, "create PR", http.MethodPost, path, requestBody, http.StatusCreated, &prResponse); err != nil {
		return nil, err
	}

	log.Debug().
		Str("url", prResponse.HTMLURL).
		Int("number", prResponse.Number).
		Msg("Created pull request")

	if len(options.Labels) > 0 {
		if err := c.addLabels(ctx, owner, repo, prResponse.Number, options.Labels); err != nil {
			log.Warn().Err(err).Msg("Failed to add labels to PR")
		}
	}

	return &PullRequestRef{Number: prResponse.Number, URL: prResponse.HTMLURL}, nil
}

// FindOpenPullRequest finds an open PR for the given branch
func (c *GitHubClient) FindOpenPullRequest(ctx context.Context, owner, repo, headBranch string) (*PullRequest, error) {
	log.Debug().
		Str("headBranch", headBranch).
		Msg("Searching for open pull request")

	path := fmt.Sprintf("/repos/%s/%s/pulls?state=open&head=%s",
		owner, repo, url.QueryEscape(owner+":"+headBranch))

	var prs []PullRequest
	if err := c.do(ctx, "search PRs", http.MethodGet, path, nil, http.StatusOK, &prs); err != nil {
		return nil, err
	}

	if len(prs) > 0 {
		log.Debug().
			Int("number", prs[0].Number).
			Str("url", prs[0].HTMLURL).
			Msg("Found existing open pull request")
		return &prs[0], nil
	}

	log.Debug().Msg("No existing open pull request found")
	return nil, nil
}

// UpdatePullRequest updates title and body of an existing pull request
func (c *GitHubClient) UpdatePullRequest(ctx context.Context, owner, repo string, prNumber int, options *PullRequestOptions) error {
	log.Debug().
		Int("pr", prNumber).
		Str("title", options.Title).
		Msg("Updating pull request")

	requestBody := map[string]interface{}{
		"title": options.Title,
		"body":  options.Body,
	}

	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, prNumber)
	if err := c.do(ctx, "update PR", http.MethodPatch, path, requestBody, http.StatusOK, nil); err != nil {
		return err
	}

	log.Debug().Int("number", prNumber).Msg("Updated pull request")

	if len(options.Labels) > 0 {
		if err := c.addLabels(ctx, owner, repo, prNumber, options.Labels); err != nil {
			log.Warn().Err(err).Msg("Failed to update labels on PR")
		}
	}

	return nil
}

// addLabels adds labels to a pull request
func (c *GitHubClient) addLabels(ctx context.Context, owner, repo string, prNumber int, labels []string) error {
	log.Debug().
		Int("pr", prNumber).
		Strs("labels", labels).
		Msg("Adding labels to pull request")

	requestBody := map[string]interface{}{
		"labels": labels,
	}

	path := fmt.Sprintf("/repos/%s/%s/issues/%d/labels", owner, repo, prNumber)
	return c.do(ctx, "add labels", http.MethodPost, path, requestBody, http.StatusOK, nil)
}

func (c *GitHubClient) getDefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	var response struct {
		DefaultBranch string `json:"default_branch"`
	}

	path := fmt.Sprintf("/repos/%s/%s", owner, repo)
	if err := c.do(ctx, "get repository", http.MethodGet, path, nil, http.StatusOK, &response); err != nil {
		return "", err
	}

	if response.DefaultBranch == "" {
		return "", fmt.Errorf("repository %s/%s has no default branch", owner, repo)
	}
	return response.DefaultBranch, nil
}

func (c *GitHubClient) getBranchSHA(ctx context.Context, owner, repo, branch string) (string, error) {
	var response struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}

	path := fmt.Sprintf("/repos/%s/%s/git/ref/heads/%s", owner, repo, branch)
	if err := c.do(ctx, "get branch "+branch, http.MethodGet, path, nil, http.StatusOK, &response); err != nil {
		return "", err
	}
	return response.Object.SHA, nil
}

func (c *GitHubClient) getCommitTree(ctx context.Context, owner, repo, commitSHA string) (string, error) {
	var response struct {
		Tree struct {
			SHA string `json:"sha"`
		} `json:"tree"`
	}

	path := fmt.Sprintf("/repos/%s/%s/git/commits/%s", owner, repo, commitSHA)
	if err := c.do(ctx, "get commit", http.MethodGet, path, nil, http.StatusOK, &response); err != nil {
		return "", err
	}
	return response.Tree.SHA, nil
}

func (c *GitHubClient) createTree(ctx context.Context, owner, repo, baseTree string, request *PullRequestRequest) (string, error) {
	entries, err := treeEntries(request)
	if err != nil {
		return "", err
	}

	requestBody := map[string]interface{}{
		"base_tree": baseTree,
		"tree":      entries,
	}

	var response struct {
		SHA string `json:"sha"`
	}

	path := fmt.Sprintf("/repos/%s/%s/git/trees", owner, repo)
	if err := c.do(ctx, "create tree", http.MethodPost, path, requestBody, http.StatusCreated, &response); err != nil {
		return "", err
	}
	return response.SHA, nil
}

func (c *GitHubClient) createCommit(ctx context.Context, owner, repo, message, tree, parent string) (string, error) {
	requestBody := map[string]interface{}{
		"message": message,
		"tree":    tree,
		"parents": []string{parent},
	}

	var response struct {
		SHA string `json:"sha"`
	}

	path := fmt.Sprintf("/repos/%s/%s/git/commits", owner, repo)
	if err := c.do(ctx, "create commit", http.MethodPost, path, requestBody, http.StatusCreated, &response); err != nil {
		return "", err
	}

	log.Debug().Str("sha", response.SHA).Str("message", message).Msg("Created commit")
	return response.SHA, nil
}

// setBranch points the branch at commit, creating it when missing and moving it otherwise
func (c *GitHubClient) setBranch(ctx context.Context, owner, repo, branch, commit string) error {
	createBody := map[string]interface{}{
		"ref": "refs/heads/" + branch,
		"sha": commit,
	}

	path := fmt.Sprintf("/repos/%s/%s/git/refs", owner, repo)
	err := c.do(ctx, "create branch "+branch, http.MethodPost, path, createBody, http.StatusCreated, nil)
	if err == nil {
		log.Debug().Str("branch", branch).Msg("Created branch")
		return nil
	}

	apiErr, ok := err.(*APIError)
	if !ok || apiErr.StatusCode != http.StatusUnprocessableEntity {
		return err
	}

	updateBody := map[string]interface{}{
		"sha":   commit,
		"force": true,
	}

	path = fmt.Sprintf("/repos/%s/%s/git/refs/heads/%s", owner, repo, branch)
	if err := c.do(ctx, "update branch "+branch, http.MethodPatch, path, updateBody, http.StatusOK, nil); err != nil {
		return err
	}

	log.Debug().Str("branch", branch).Msg("Moved existing branch")
	return nil
}

// do sends a JSON request to the API and decodes the response into out when it is not nil
func (c *GitHubClient) do(ctx context.Context, operation, method, path string, body interface{}, wantStatus int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		bodyJSON, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewBuffer(bodyJSON)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("token %s", c.Token))
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		return &APIError{Operation: operation, StatusCode: resp.StatusCode, Body: string(responseBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(responseBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// treeEntries converts the change set into git tree entries, sorted by path.
// A nil change is encoded with a null sha, which removes the path from the tree.
func treeEntries(request *PullRequestRequest) ([]map[string]interface{}, error) {
	paths := sortedPaths(request.Changes)
	entries := make([]map[string]interface{}, 0, len(paths))

	for _, path := range paths {
		change := request.Changes[path]
		if change == nil {
			entries = append(entries, map[string]interface{}{
				"path": path,
				"mode": "100644",
				"type": "blob",
				"sha":  nil,
			})
			continue
		}

		mode, ok := fileModes[change.Mode]
		if !ok {
			return nil, &UnsupportedModeError{Path: path, Mode: change.Mode}
		}

		entries = append(entries, map[string]interface{}{
			"path":    path,
			"mode":    mode,
			"type":    "blob",
			"content": change.Content,
		})
	}

	return entries, nil
}

func sortedPaths(changes map[string]*plan.ChangeEntry) []string {
	paths := make([]string, 0, len(changes))
	for path := range changes {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// splitRepo splits an owner/repo identifier
func splitRepo(identifier string) (string, string, error) {
	parts := strings.Split(strings.Trim(identifier, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("unsupported repository identifier '%s', expected owner/repo", identifier)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}
