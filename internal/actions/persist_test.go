package actions

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/mxcd/tpd-github/internal/configuration"
	"github.com/mxcd/tpd-github/internal/git"
	"github.com/mxcd/tpd-github/internal/plan"
	"github.com/mxcd/tpd-github/internal/template"
)

type fakePublisher struct {
	requests []*git.PullRequestRequest
	failures map[string]error
}

func (f *fakePublisher) OpenPR(ctx context.Context, request *git.PullRequestRequest) (*git.PullRequestRef, error) {
	f.requests = append(f.requests, request)
	if err := f.failures[request.Repo]; err != nil {
		return nil, err
	}
	return &git.PullRequestRef{
		Number: len(f.requests),
		URL:    "https://github.com/" + request.Repo + "/pull/1",
	}, nil
}

type fakeRepoInfo struct {
	remote string
	commit string
	err    error
}

func (f *fakeRepoInfo) RemoteAndCommit(ctx context.Context, baseDirectory string) (string, string, error) {
	return f.remote, f.commit, f.err
}

func mustParse(t *testing.T, document string) []*template.Descriptor {
	t.Helper()
	descriptors, err := template.ParseDescriptors([]byte(document))
	if err != nil {
		t.Fatalf("ParseDescriptors() error = %v", err)
	}
	return descriptors
}

func newTestPersister(config *configuration.Config, publisher Publisher, repoInfo plan.RepoInfoProvider) *Persister {
	persister := NewPersister(config, publisher, repoInfo)
	persister.SetProgressOutput(io.Discard)
	return persister
}

const singleFileTemplates = `[
	{"template": "t", "destination": {"type": "tpd-github", "params": {"repo": "org1/repo1", "filepath": "file1.txt"}}, "renderedTemplate": "test"}
]`

const multiRepoTemplates = `[
	{"template": "t", "destination": {"type": "tpd-github", "params": {"repo": "org1/repo1", "filepath": "file1.txt"}}, "renderedTemplate": "test"},
	{"template": "t", "destination": {"type": "tpd-github", "params": {"repo": "org2/repo1", "filepath": "deep/text.txt"}}, "renderedTemplate": "test"},
	{"template": null, "destination": {"type": "tpd-github", "params": {"repo": "org2/repo1", "filepath": "deep/old.txt"}}},
	{"template": "t", "destination": {"type": "tpd-github", "params": {"repo": "org1/repo1", "filepath": "existingDir/text.txt"}}, "renderedTemplate": "test"},
	{"template": "t", "destination": {"type": "tpd-github", "params": {"repo": "org3/repo1", "filepath": "run.sh", "mode": "executable"}}, "renderedTemplate": "#!/bin/sh"}
]`

func TestPersistSingleFile(t *testing.T) {
	publisher := &fakePublisher{}
	persister := newTestPersister(nil, publisher, &fakeRepoInfo{err: errors.New("not a git repository")})

	result := persister.Persist(context.Background(), mustParse(t, singleFileTemplates))

	if result.HasInvalidTemplates() || result.Failed() {
		t.Fatalf("unexpected failure: %+v", result)
	}
	if len(publisher.requests) != 1 {
		t.Fatalf("expected 1 publish call, got %d", len(publisher.requests))
	}

	request := publisher.requests[0]
	if request.Repo != "org1/repo1" {
		t.Errorf("unexpected repo: %s", request.Repo)
	}
	if request.Body != "Generate:\nfile1.txt" {
		t.Errorf("unexpected body: %q", request.Body)
	}
	if request.Message != plan.FallbackMessage || request.Title != plan.FallbackMessage {
		t.Errorf("expected fallback message, got %q / %q", request.Message, request.Title)
	}
	if request.BaseBranch != "" || request.Draft {
		t.Errorf("expected default base branch and no draft, got %q / %v", request.BaseBranch, request.Draft)
	}
	if len(request.Changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(request.Changes))
	}
	if entry := request.Changes["file1.txt"]; entry == nil || entry.Mode != "normal" || entry.Content != "test" {
		t.Errorf("unexpected change: %+v", entry)
	}

	values := result.Map()
	if len(values) != 1 || values["org1/repo1"] != "https://github.com/org1/repo1/pull/1" {
		t.Errorf("unexpected result map: %v", values)
	}
}

func TestPersistInvalidTemplatesShortCircuit(t *testing.T) {
	document := `[
		{"template": "t", "destination": {"type": "tpd-github", "params": {"repo": "org1/repo1", "filepath": "a.txt"}}, "renderedTemplate": "ok"},
		{"template": "t", "destination": {"type": "tpd-github", "params": {"repo": "org2/repo1", "filepath": "b.txt"}}},
		{"destination": {"type": "tpd-github", "params": {"repo": "org3/repo1", "filepath": "c.txt"}}, "renderedTemplate": "x"},
		{"template": null, "destination": {"type": "tpd-gitlab", "params": {"repo": "org4/repo1", "filepath": "d.txt"}}}
	]`

	publisher := &fakePublisher{}
	persister := newTestPersister(nil, publisher, nil)

	result := persister.Persist(context.Background(), mustParse(t, document))

	if len(publisher.requests) != 0 {
		t.Fatalf("expected no publish call, got %d", len(publisher.requests))
	}
	if len(result.InvalidTemplates) != 3 {
		t.Fatalf("expected 3 invalid templates, got %d", len(result.InvalidTemplates))
	}
	wantRepos := []string{"org2/repo1", "org3/repo1", "org4/repo1"}
	for i, want := range wantRepos {
		if got := result.InvalidTemplates[i].Repo(); got != want {
			t.Errorf("invalid template %d repo = %s, want %s", i, got, want)
		}
	}
	if len(result.Repositories) != 0 {
		t.Errorf("expected no repository results, got %d", len(result.Repositories))
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var decoded map[string][]map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if len(decoded) != 1 || len(decoded["invalidTemplates"]) != 3 {
		t.Errorf("unexpected JSON shape: %s", data)
	}
	if _, ok := decoded["invalidTemplates"][2]["template"]; !ok {
		t.Errorf("explicit null template must be kept: %s", data)
	}
}

func TestPersistReportsDescriptorsWithUnexpectedTypes(t *testing.T) {
	document := `[
		{"template": "t", "destination": {"type": "tpd-github", "params": {"repo": "org1/repo1", "filepath": "a.txt", "mode": 100644}}, "renderedTemplate": "ok"},
		{"template": "t", "destination": "oops", "renderedTemplate": "x", "owner": "team-a"}
	]`

	publisher := &fakePublisher{}
	persister := newTestPersister(nil, publisher, nil)

	result := persister.Persist(context.Background(), mustParse(t, document))

	if len(publisher.requests) != 0 {
		t.Fatalf("expected no publish call, got %d", len(publisher.requests))
	}
	if len(result.InvalidTemplates) != 1 || len(result.InvalidIndexes) != 1 || result.InvalidIndexes[0] != 1 {
		t.Fatalf("expected the second template to be invalid, got %d at %v", len(result.InvalidTemplates), result.InvalidIndexes)
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	want := `{"invalidTemplates":[{"template":"t","destination":"oops","renderedTemplate":"x","owner":"team-a"}]}`
	if string(data) != want {
		t.Errorf("json.Marshal() = %s, want %s", data, want)
	}
}

func TestPersistOneCallPerRepository(t *testing.T) {
	publisher := &fakePublisher{}
	persister := newTestPersister(nil, publisher, &fakeRepoInfo{remote: "git@github.com:org/templates.git", commit: "abc123"})

	result := persister.Persist(context.Background(), mustParse(t, multiRepoTemplates))

	if len(publisher.requests) != 3 {
		t.Fatalf("expected 3 publish calls, got %d", len(publisher.requests))
	}

	wantRepos := []string{"org1/repo1", "org2/repo1", "org3/repo1"}
	for i, want := range wantRepos {
		if publisher.requests[i].Repo != want {
			t.Errorf("publish call %d repo = %s, want %s", i, publisher.requests[i].Repo, want)
		}
		if result.Repositories[i].Repo != want {
			t.Errorf("result %d repo = %s, want %s", i, result.Repositories[i].Repo, want)
		}
		if publisher.requests[i].Message != "Generated from org/templates@abc123" {
			t.Errorf("unexpected message: %s", publisher.requests[i].Message)
		}
	}

	first := publisher.requests[0]
	if first.Branch != "ci_1c4652b83af0c32c9ba0377dbaaa96c026bf3d80f03ce68e1d6abfce52972002" {
		t.Errorf("unexpected branch: %s", first.Branch)
	}

	second := publisher.requests[1]
	if second.Body != "Generate:\ndeep/text.txt\nDelete:\ndeep/old.txt" {
		t.Errorf("unexpected body: %q", second.Body)
	}
	if entry, ok := second.Changes["deep/old.txt"]; !ok || entry != nil {
		t.Errorf("expected nil deletion entry, got %+v", entry)
	}

	third := publisher.requests[2]
	if entry := third.Changes["run.sh"]; entry == nil || entry.Mode != "executable" {
		t.Errorf("expected executable mode, got %+v", entry)
	}
}

func TestPersistPartialFailure(t *testing.T) {
	publisher := &fakePublisher{failures: map[string]error{"org2/repo1": errors.New("boom")}}
	persister := newTestPersister(nil, publisher, nil)

	result := persister.Persist(context.Background(), mustParse(t, multiRepoTemplates))

	if len(publisher.requests) != 3 {
		t.Fatalf("a failing repository must not stop the others, got %d calls", len(publisher.requests))
	}
	if !result.Failed() {
		t.Error("expected result to report a failure")
	}

	values := result.Map()
	if values["org2/repo1"] != "boom" {
		t.Errorf("org2/repo1 = %q, want %q", values["org2/repo1"], "boom")
	}
	if values["org1/repo1"] != "https://github.com/org1/repo1/pull/1" {
		t.Errorf("org1/repo1 = %q", values["org1/repo1"])
	}
	if values["org3/repo1"] != "https://github.com/org3/repo1/pull/1" {
		t.Errorf("org3/repo1 = %q", values["org3/repo1"])
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	want := `{"org1/repo1":"https://github.com/org1/repo1/pull/1","org2/repo1":"boom","org3/repo1":"https://github.com/org3/repo1/pull/1"}`
	if string(data) != want {
		t.Errorf("json.Marshal() = %s, want %s", data, want)
	}
}

func TestPersistAppliesPullRequestSettings(t *testing.T) {
	publisher := &fakePublisher{}
	config := &configuration.Config{BaseDirectory: ".", Draft: true, Labels: []string{"automated"}}
	persister := newTestPersister(config, publisher, nil)

	persister.Persist(context.Background(), mustParse(t, singleFileTemplates))

	if len(publisher.requests) != 1 {
		t.Fatalf("expected 1 publish call, got %d", len(publisher.requests))
	}
	request := publisher.requests[0]
	if !request.Draft {
		t.Error("expected draft pull request")
	}
	if len(request.Labels) != 1 || request.Labels[0] != "automated" {
		t.Errorf("unexpected labels: %v", request.Labels)
	}
}

func TestPlanDoesNotPublish(t *testing.T) {
	publisher := &fakePublisher{}
	persister := newTestPersister(nil, publisher, nil)

	result := persister.Plan(context.Background(), mustParse(t, multiRepoTemplates))

	if len(publisher.requests) != 0 {
		t.Fatalf("expected no publish call, got %d", len(publisher.requests))
	}
	if len(result.Plans()) != 3 {
		t.Fatalf("expected 3 plans, got %d", len(result.Plans()))
	}
	for _, repository := range result.Repositories {
		if repository.PullRequest != nil || repository.Value() != "" {
			t.Errorf("unexpected outcome for %s: %q", repository.Repo, repository.Value())
		}
	}
}

func TestPersistEmptyInput(t *testing.T) {
	publisher := &fakePublisher{}
	persister := newTestPersister(nil, publisher, nil)

	result := persister.Persist(context.Background(), nil)

	if result.HasInvalidTemplates() || result.Failed() {
		t.Errorf("unexpected failure: %+v", result)
	}
	if len(publisher.requests) != 0 || len(result.Map()) != 0 {
		t.Errorf("expected nothing to be published")
	}
}
