package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// ParseDescriptors parses a JSON document holding either a list of descriptors
// or an object whose values are descriptors, keyed by an arbitrary name.
// Keyed documents are returned sorted by key.
func ParseDescriptors(data []byte) ([]*Descriptor, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fmt.Errorf("template document is empty")
	}

	if strings.HasPrefix(trimmed, "[") {
		var list []*Descriptor
		if err := json.Unmarshal([]byte(trimmed), &list); err != nil {
			return nil, fmt.Errorf("failed to parse template list: %w", err)
		}
		return list, nil
	}

	var keyed map[string]*Descriptor
	if err := json.Unmarshal([]byte(trimmed), &keyed); err != nil {
		return nil, fmt.Errorf("failed to parse template map: %w", err)
	}

	keys := make([]string, 0, len(keyed))
	for key := range keyed {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	list := make([]*Descriptor, 0, len(keys))
	for _, key := range keys {
		list = append(list, keyed[key])
	}
	return list, nil
}

// LoadDescriptors reads descriptors from a file, or from every .json/.yml/.yaml
// file in a directory (in name order) and concatenates them
func LoadDescriptors(path string) ([]*Descriptor, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access templates path: %w", err)
	}

	if !fileInfo.IsDir() {
		return loadDescriptorFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if isDescriptorFile(entry.Name()) {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no .json, .yml or .yaml files found in directory: %s", path)
	}

	log.Debug().
		Str("directory", path).
		Int("fileCount", len(files)).
		Msg("Loading templates from directory")

	descriptors := make([]*Descriptor, 0)
	for _, file := range files {
		loaded, err := loadDescriptorFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		descriptors = append(descriptors, loaded...)
	}

	return descriptors, nil
}

func loadDescriptorFile(path string) ([]*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yml" || ext == ".yaml" {
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, err
		}
	}

	return ParseDescriptors(data)
}

// yamlToJSON converts a YAML document to JSON so both formats share one decoder
func yamlToJSON(data []byte) ([]byte, error) {
	var document interface{}
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("failed to parse templates YAML: %w", err)
	}

	converted, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("failed to convert templates YAML: %w", err)
	}
	return converted, nil
}

func isDescriptorFile(name string) bool {
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml")
}
