package template

import "fmt"

// Action is a validated change to a single file in a repository.
// It is either a Generate or a Delete.
type Action interface {
	RepoName() string
	Path() string
	// HashInput is the string contributed to the branch digest
	HashInput() string
	isAction()
}

// Generate creates or updates Filepath with Content
type Generate struct {
	Repo     string
	Filepath string
	Mode     string
	Content  string
}

// Delete removes Filepath from the repository
type Delete struct {
	Repo     string
	Filepath string
	// Rendered is the rendered body a deletion descriptor carried, if any.
	// It only influences the branch digest.
	Rendered *string
}

func (g *Generate) RepoName() string  { return g.Repo }
func (g *Generate) Path() string      { return g.Filepath }
func (g *Generate) HashInput() string { return g.Filepath + g.Content }
func (g *Generate) isAction()         {}

func (d *Delete) RepoName() string { return d.Repo }
func (d *Delete) Path() string     { return d.Filepath }

// HashInput writes an absent rendered body as "undefined" and an explicit null as "null"
func (d *Delete) HashInput() string {
	if d.Rendered == nil {
		return d.Filepath + "undefined"
	}
	return d.Filepath + *d.Rendered
}
func (d *Delete) isAction() {}

// Decode converts a descriptor into an Action. The descriptor must be valid.
func Decode(d *Descriptor) (Action, error) {
	if err := Check(d); err != nil {
		return nil, fmt.Errorf("cannot decode invalid template: %w", err)
	}

	params := d.Destination.Params
	if d.IsDeletion() {
		rendered := d.RenderedTemplate
		if rendered == nil && d.RenderedTemplateSet {
			null := "null"
			rendered = &null
		}
		return &Delete{
			Repo:     params.Repo,
			Filepath: params.Filepath,
			Rendered: rendered,
		}, nil
	}

	mode := params.Mode
	if mode == "" {
		mode = DefaultMode
	}

	return &Generate{
		Repo:     params.Repo,
		Filepath: params.Filepath,
		Mode:     mode,
		Content:  *d.RenderedTemplate,
	}, nil
}

// DecodeAll decodes every descriptor, stopping at the first invalid one
func DecodeAll(descriptors []*Descriptor) ([]Action, error) {
	actions := make([]Action, 0, len(descriptors))
	for i, descriptor := range descriptors {
		action, err := Decode(descriptor)
		if err != nil {
			return nil, fmt.Errorf("template %d: %w", i, err)
		}
		actions = append(actions, action)
	}
	return actions, nil
}
