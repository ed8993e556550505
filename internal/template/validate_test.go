package template

import (
	"encoding/json"
	"testing"
)

func mustParse(t *testing.T, document string) []*Descriptor {
	t.Helper()
	descriptors, err := ParseDescriptors([]byte(document))
	if err != nil {
		t.Fatalf("failed to parse descriptors: %v", err)
	}
	return descriptors
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		document  string
		wantField string
	}{
		{
			name:     "valid generate",
			document: `{"template":"t","destination":{"type":"tpd-github","params":{"repo":"org1/repo1","filepath":"file1.txt"}},"renderedTemplate":"test"}`,
		},
		{
			name:     "valid delete without rendered template",
			document: `{"template":null,"destination":{"type":"tpd-github","params":{"repo":"org1/repo1","filepath":"file1.txt"}}}`,
		},
		{
			name:     "valid generate with empty rendered template",
			document: `{"template":"t","destination":{"type":"tpd-github","params":{"repo":"org1/repo1","filepath":"empty.txt"}},"renderedTemplate":""}`,
		},
		{
			name:     "valid whitespace repo and filepath",
			document: `{"template":"t","destination":{"type":"tpd-github","params":{"repo":" ","filepath":" "}},"renderedTemplate":"x"}`,
		},
		{
			name:     "valid numeric repo",
			document: `{"template":"t","destination":{"type":"tpd-github","params":{"repo":12,"filepath":"a.txt"}},"renderedTemplate":"x"}`,
		},
		{
			name:      "zero repo",
			document:  `{"template":"t","destination":{"type":"tpd-github","params":{"repo":0,"filepath":"a.txt"}},"renderedTemplate":"x"}`,
			wantField: "destination.params.repo",
		},
		{
			name:      "destination is a string",
			document:  `{"template":"t","destination":"oops","renderedTemplate":"x"}`,
			wantField: "destination",
		},
		{
			name:      "type is an object",
			document:  `{"template":"t","destination":{"type":{"name":"tpd-github"},"params":{"repo":"org/repo","filepath":"a.txt"}},"renderedTemplate":"x"}`,
			wantField: "destination.type",
		},
		{
			name:      "rendered template is an array",
			document:  `{"template":"t","destination":{"type":"tpd-github","params":{"repo":"org/repo","filepath":"a.txt"}},"renderedTemplate":["x"]}`,
			wantField: "renderedTemplate",
		},
		{
			name:      "missing template key",
			document:  `{"destination":{"type":"tpd-github","params":{"repo":"missing/template","filepath":"a.txt"}},"renderedTemplate":"test"}`,
			wantField: "template",
		},
		{
			name:      "missing destination",
			document:  `{"template":"t","renderedTemplate":"test"}`,
			wantField: "destination",
		},
		{
			name:      "wrong destination type",
			document:  `{"template":"t","destination":{"type":"tpd-gitlab","params":{"repo":"org/repo","filepath":"a.txt"}},"renderedTemplate":"test"}`,
			wantField: "destination.type",
		},
		{
			name:      "missing params",
			document:  `{"template":"t","destination":{"type":"tpd-github"},"renderedTemplate":"test"}`,
			wantField: "destination.params",
		},
		{
			name:      "empty repo",
			document:  `{"template":"t","destination":{"type":"tpd-github","params":{"repo":"","filepath":"a.txt"}},"renderedTemplate":"test"}`,
			wantField: "destination.params.repo",
		},
		{
			name:      "missing filepath",
			document:  `{"template":"t","destination":{"type":"tpd-github","params":{"repo":"org/repo"}},"renderedTemplate":"test"}`,
			wantField: "destination.params.filepath",
		},
		{
			name:      "generate without rendered template",
			document:  `{"template":"t","destination":{"type":"tpd-github","params":{"repo":"org/repo","filepath":"a.txt"}}}`,
			wantField: "renderedTemplate",
		},
		{
			name:      "generate with null rendered template",
			document:  `{"template":"t","destination":{"type":"tpd-github","params":{"repo":"org/repo","filepath":"a.txt"}},"renderedTemplate":null}`,
			wantField: "renderedTemplate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			descriptors := mustParse(t, "["+tt.document+"]")
			err := Check(descriptors[0])

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected valid descriptor, got %v", err)
				}
				if !IsValid(descriptors[0]) {
					t.Errorf("IsValid() = false, want true")
				}
				return
			}

			if err == nil {
				t.Fatalf("expected validation error on %s, got none", tt.wantField)
			}
			if err.Field != tt.wantField {
				t.Errorf("Check() field = %s, want %s", err.Field, tt.wantField)
			}
			if IsValid(descriptors[0]) {
				t.Errorf("IsValid() = true, want false")
			}
		})
	}
}

func TestCheckNilDescriptor(t *testing.T) {
	if IsValid(nil) {
		t.Error("nil descriptor must be invalid")
	}
}

func TestFilterInvalidPreservesOrder(t *testing.T) {
	descriptors := mustParse(t, `[
		{"destination":{"type":"tpd-github","params":{"repo":"a/a","filepath":"1"}},"renderedTemplate":"x"},
		{"template":"t","destination":{"type":"tpd-github","params":{"repo":"b/b","filepath":"2"}},"renderedTemplate":"x"},
		{"template":"t","destination":{"type":"other","params":{"repo":"c/c","filepath":"3"}},"renderedTemplate":"x"},
		null,
		{"template":"t","destination":{"type":"tpd-github","params":{"repo":"d/d","filepath":""}},"renderedTemplate":"x"}
	]`)

	invalid := FilterInvalid(descriptors)
	if len(invalid) != 4 {
		t.Fatalf("expected 4 invalid descriptors, got %d", len(invalid))
	}

	wantRepos := []string{"a/a", "c/c", "", "d/d"}
	for i, want := range wantRepos {
		if got := invalid[i].Repo(); got != want {
			t.Errorf("invalid[%d] repo = %q, want %q", i, got, want)
		}
	}
	if invalid[2] != descriptors[3] {
		t.Error("expected the null descriptor to be reported as is")
	}
}

func TestFilterInvalidAllValid(t *testing.T) {
	descriptors := mustParse(t, `[
		{"template":null,"destination":{"type":"tpd-github","params":{"repo":"org1/repo1","filepath":"folder/application.json"}}},
		{"template":null,"destination":{"type":"tpd-github","params":{"repo":"org1/repo1","filepath":"folder/application.json"}}}
	]`)

	if invalid := FilterInvalid(descriptors); len(invalid) != 0 {
		t.Errorf("expected no invalid descriptors, got %d", len(invalid))
	}
}

func TestDescriptorRoundTripKeepsNullTemplate(t *testing.T) {
	descriptors := mustParse(t, `[
		{"template":null,"destination":{"type":"tpd-github","params":{"repo":"org/repo","filepath":"old.txt"}}},
		{"destination":{"type":"tpd-github","params":{"repo":"org/repo","filepath":"new.txt"}},"renderedTemplate":"x"}
	]`)

	encoded, err := json.Marshal(descriptors)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var generic []map[string]interface{}
	if err := json.Unmarshal(encoded, &generic); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	value, ok := generic[0]["template"]
	if !ok || value != nil {
		t.Errorf("expected explicit null template, got %v (present=%v)", value, ok)
	}
	if _, ok := generic[1]["template"]; ok {
		t.Error("expected template key to stay absent")
	}
	if generic[1]["renderedTemplate"] != "x" {
		t.Errorf("expected renderedTemplate to be kept, got %v", generic[1]["renderedTemplate"])
	}
}

func TestDescriptorMarshalKeepsInput(t *testing.T) {
	input := `{"template":5,"destination":{"type":"tpd-github","params":{"repo":"org/repo"}},"owner":"team-a"}`
	descriptors := mustParse(t, "["+input+"]")

	encoded, err := json.Marshal(descriptors[0])
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if string(encoded) != input {
		t.Errorf("json.Marshal() = %s, want %s", encoded, input)
	}
}

func TestDescriptorMarshalWithoutInput(t *testing.T) {
	text := "t"
	descriptor := &Descriptor{
		Template:    &text,
		TemplateSet: true,
		Destination: &Destination{Type: DestinationTypeGitHub, Params: &Params{Repo: "org/repo", Filepath: "a.txt"}},
	}

	encoded, err := json.Marshal(descriptor)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	want := `{"destination":{"type":"tpd-github","params":{"repo":"org/repo","filepath":"a.txt"}},"template":"t"}`
	if string(encoded) != want {
		t.Errorf("json.Marshal() = %s, want %s", encoded, want)
	}
}
