package actions

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mxcd/tpd-github/internal/plan"
	"github.com/mxcd/tpd-github/internal/template"
	"gopkg.in/yaml.v3"
)

const (
	OutputFormatTable = "table"
	OutputFormatJSON  = "json"
	OutputFormatYAML  = "yaml"
)

// planOutput is the serialized form of a planned repository
type planOutput struct {
	Repo    string                       `json:"repo" yaml:"repo"`
	Branch  string                       `json:"branch,omitempty" yaml:"branch,omitempty"`
	Title   string                       `json:"title,omitempty" yaml:"title,omitempty"`
	Body    string                       `json:"body,omitempty" yaml:"body,omitempty"`
	Changes map[string]*plan.ChangeEntry `json:"changes,omitempty" yaml:"changes,omitempty"`
	Error   string                       `json:"error,omitempty" yaml:"error,omitempty"`
}

// invalidTemplateOutput is the serialized form of an invalid descriptor in validation reports
type invalidTemplateOutput struct {
	Index    int    `json:"index" yaml:"index"`
	Repo     string `json:"repo" yaml:"repo"`
	Filepath string `json:"filepath" yaml:"filepath"`
	Field    string `json:"field" yaml:"field"`
	Message  string `json:"message" yaml:"message"`
}

func encode(w io.Writer, format string, output interface{}) error {
	switch format {
	case OutputFormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(output)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(output)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// outputPlan renders the planned pull requests without publishing them
func outputPlan(w io.Writer, result *PersistResult, format string) error {
	if result.HasInvalidTemplates() {
		return outputResult(w, result, format)
	}

	if format != OutputFormatTable {
		plans := make([]*planOutput, 0, len(result.Repositories))
		for _, repository := range result.Repositories {
			output := &planOutput{Repo: repository.Repo, Error: repository.Error}
			if repository.Plan != nil {
				output.Branch = repository.Plan.Branch
				output.Title = repository.Plan.Title
				output.Body = repository.Plan.Body
				output.Changes = repository.Plan.Changes
			}
			plans = append(plans, output)
		}
		return encode(w, format, map[string]interface{}{"repositories": plans})
	}

	fmt.Fprintln(w, "\n🔍 Pull Request Plan")
	fmt.Fprintln(w, "====================")

	for i, repository := range result.Repositories {
		fmt.Fprintf(w, "📦 Repository %d/%d: %s\n", i+1, len(result.Repositories), repository.Repo)
		if repository.Plan == nil {
			fmt.Fprintf(w, "   ❌ %s\n\n", repository.Error)
			continue
		}
		fmt.Fprintf(w, "   Branch: %s\n", repository.Plan.Branch)
		fmt.Fprintf(w, "   Title:  %s\n\n", repository.Plan.Title)

		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.AppendHeader(table.Row{"File", "Action", "Mode", "Size"})
		for _, path := range repository.Plan.Paths() {
			entry := repository.Plan.Changes[path]
			if entry == nil {
				t.AppendRow(table.Row{path, "delete", "-", "-"})
				continue
			}
			t.AppendRow(table.Row{path, "write", entry.Mode, fmt.Sprintf("%d B", len(entry.Content))})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "📊 Would open %d pull request(s)\n", len(result.Plans()))
	return nil
}

// outputResult renders the outcome of a persist run
func outputResult(w io.Writer, result *PersistResult, format string) error {
	if format != OutputFormatTable {
		return encode(w, format, result)
	}

	if result.HasInvalidTemplates() {
		return outputInvalidTemplates(w, result.InvalidTemplates, result.InvalidIndexes, format)
	}
	if result.Failure != "" {
		fmt.Fprintf(w, "❌ %s\n", result.Failure)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("🔀 Pull Requests")
	t.AppendHeader(table.Row{"Repository", "Status", "Pull Request"})
	for _, repository := range result.Repositories {
		status := "✅ created"
		switch {
		case repository.Error != "":
			status = "❌ failed"
		case repository.PullRequest == nil:
			status = "⏸ not published"
		case repository.PullRequest.Updated:
			status = "🔄 updated"
		}
		t.AppendRow(table.Row{repository.Repo, status, repository.Value()})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

// outputInvalidTemplates lists every invalid descriptor with its input position and the first field that failed
func outputInvalidTemplates(w io.Writer, invalid []*template.Descriptor, indexes []int, format string) error {
	rows := make([]*invalidTemplateOutput, 0, len(invalid))
	for i, descriptor := range invalid {
		index := i
		if i < len(indexes) {
			index = indexes[i]
		}
		row := &invalidTemplateOutput{
			Index:    index,
			Repo:     descriptor.Repo(),
			Filepath: descriptor.Filepath(),
		}
		if problem := template.Check(descriptor); problem != nil {
			row.Field = problem.Field
			row.Message = problem.Message
		}
		rows = append(rows, row)
	}

	if format != OutputFormatTable {
		return encode(w, format, map[string]interface{}{
			"valid":            len(rows) == 0,
			"invalidTemplates": rows,
		})
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "✓ All templates are valid")
		return nil
	}

	fmt.Fprintln(w, "✗ Invalid templates, no pull request was opened:")
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Repository", "File", "Field", "Problem"})
	for _, row := range rows {
		t.AppendRow(table.Row{row.Index, orDash(row.Repo), orDash(row.Filepath), row.Field, row.Message})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	fmt.Fprintf(w, "\nTotal invalid templates: %d\n", len(rows))
	return nil
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
