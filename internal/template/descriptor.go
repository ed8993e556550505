package template

import (
	"encoding/json"
	"strings"
)

// DestinationTypeGitHub is the only destination type handled by this tool
const DestinationTypeGitHub = "tpd-github"

// DefaultMode is the file mode used when a descriptor does not specify one
const DefaultMode = "normal"

// Descriptor describes one rendered file (or a deletion) and the repository it belongs to.
// A nil Template with TemplateSet true is a deletion request for the destination filepath.
type Descriptor struct {
	Template            *string
	TemplateSet         bool
	Destination         *Destination
	RenderedTemplate    *string
	RenderedTemplateSet bool

	// raw is the descriptor as it was received
	raw json.RawMessage
	// malformed names the first field holding a value of an unusable JSON type
	malformed string
}

type Destination struct {
	Type   string  `json:"type,omitempty"`
	Params *Params `json:"params,omitempty"`
}

type Params struct {
	Repo     string `json:"repo,omitempty"`
	Filepath string `json:"filepath,omitempty"`
	Mode     string `json:"mode,omitempty"`
}

// IsDeletion reports whether the descriptor asks for its filepath to be removed
func (d *Descriptor) IsDeletion() bool {
	return d.TemplateSet && d.Template == nil
}

// Repo returns the destination repository or an empty string
func (d *Descriptor) Repo() string {
	if d == nil || d.Destination == nil || d.Destination.Params == nil {
		return ""
	}
	return d.Destination.Params.Repo
}

// Filepath returns the destination filepath or an empty string
func (d *Descriptor) Filepath() string {
	if d == nil || d.Destination == nil || d.Destination.Params == nil {
		return ""
	}
	return d.Destination.Params.Filepath
}

// UnmarshalJSON never fails on a well formed JSON value. Fields of an unexpected
// type leave the descriptor invalid so it is reported instead of aborting the whole document.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	*d = Descriptor{raw: append(json.RawMessage(nil), data...)}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		d.malformed = "descriptor"
		return nil
	}

	if value, ok := raw["template"]; ok {
		d.TemplateSet = true
		if string(value) != "null" {
			text := literalText(value)
			d.Template = &text
		}
	}

	if value, ok := raw["destination"]; ok && string(value) != "null" {
		d.decodeDestination(value)
	}

	if value, ok := raw["renderedTemplate"]; ok {
		d.RenderedTemplateSet = true
		text, ok := rawString(value)
		if !ok {
			d.markMalformed("renderedTemplate")
		}
		d.RenderedTemplate = text
	}

	return nil
}

func (d *Descriptor) decodeDestination(value json.RawMessage) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(value, &fields); err != nil {
		d.markMalformed("destination")
		return
	}

	destination := &Destination{}
	d.Destination = destination
	destination.Type = d.scalarField(fields, "type", "destination.type")

	value, ok := fields["params"]
	if !ok || string(value) == "null" {
		return
	}

	var params map[string]json.RawMessage
	if err := json.Unmarshal(value, &params); err != nil {
		d.markMalformed("destination.params")
		return
	}

	destination.Params = &Params{
		Repo:     d.scalarField(params, "repo", "destination.params.repo"),
		Filepath: d.scalarField(params, "filepath", "destination.params.filepath"),
		Mode:     d.scalarField(params, "mode", "destination.params.mode"),
	}
}

func (d *Descriptor) scalarField(fields map[string]json.RawMessage, key string, path string) string {
	value, ok := fields[key]
	if !ok {
		return ""
	}
	text, ok := scalarText(value)
	if !ok {
		d.markMalformed(path)
	}
	return text
}

func (d *Descriptor) markMalformed(path string) {
	if d.malformed == "" {
		d.malformed = path
	}
}

// MarshalJSON writes the descriptor exactly as it was received. Descriptors built
// in code are written in the input shape, keeping an explicit null template.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	if len(d.raw) > 0 {
		return d.raw, nil
	}

	out := make(map[string]interface{})
	if d.TemplateSet {
		out["template"] = d.Template
	}
	if d.Destination != nil {
		out["destination"] = d.Destination
	}
	if d.RenderedTemplateSet || d.RenderedTemplate != nil {
		out["renderedTemplate"] = d.RenderedTemplate
	}
	return json.Marshal(out)
}

// rawString decodes a JSON value into a string pointer. Null yields nil,
// non-string scalars keep their literal JSON text. ok is false for objects and arrays.
func rawString(value json.RawMessage) (*string, bool) {
	var decoded interface{}
	if err := json.Unmarshal(value, &decoded); err != nil {
		return nil, false
	}

	switch v := decoded.(type) {
	case nil:
		return nil, true
	case string:
		return &v, true
	case bool, float64:
		text := literalText(value)
		return &text, true
	default:
		return nil, false
	}
}

// scalarText decodes a JSON scalar. Null, false and zero read as empty.
// Other numbers and true keep their literal JSON text. ok is false for objects and arrays.
func scalarText(value json.RawMessage) (string, bool) {
	var decoded interface{}
	if err := json.Unmarshal(value, &decoded); err != nil {
		return "", false
	}

	switch v := decoded.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	case bool:
		if !v {
			return "", true
		}
		return "true", true
	case float64:
		if v == 0 {
			return "", true
		}
		return literalText(value), true
	default:
		return "", false
	}
}

// literalText returns a string value unquoted and any other value as its compact JSON text
func literalText(value json.RawMessage) string {
	var text string
	if err := json.Unmarshal(value, &text); err == nil {
		return text
	}
	return strings.TrimSpace(string(value))
}
