package configuration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// LoadConfiguration reads and parses the configuration from the given path
// If the path is a directory, it loads all .yml files within it and merges them
// It also performs environment variable and SOPS substitution and applies defaults
func LoadConfiguration(configPath string) (*Config, error) {
	fileInfo, err := os.Stat(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access configuration path: %w", err)
	}

	var config *Config
	if fileInfo.IsDir() {
		config, err = loadConfigurationFromDirectory(configPath)
	} else {
		config, err = loadSingleConfigurationFile(configPath)
	}
	if err != nil {
		return nil, err
	}

	ctx := NewSubstitutionContext()
	if err := ctx.SubstituteInConfig(config); err != nil {
		return nil, fmt.Errorf("failed to substitute variables: %w", err)
	}

	config.ApplyDefaults()
	return config, nil
}

// loadSingleConfigurationFile reads and parses a single configuration file
func loadSingleConfigurationFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse configuration YAML: %w", err)
	}

	return &config, nil
}

// loadConfigurationFromDirectory loads all .yml files from a directory in name order and merges them
func loadConfigurationFromDirectory(dirPath string) (*Config, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration directory: %w", err)
	}

	var configFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml") {
			configFiles = append(configFiles, filepath.Join(dirPath, name))
		}
	}

	if len(configFiles) == 0 {
		return nil, fmt.Errorf("no .yml or .yaml files found in directory: %s", dirPath)
	}

	log.Debug().
		Str("directory", dirPath).
		Int("fileCount", len(configFiles)).
		Msg("Loading configuration from directory")

	var configs []*Config
	for _, filePath := range configFiles {
		config, err := loadSingleConfigurationFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", filePath, err)
		}
		configs = append(configs, config)
	}

	return mergeConfigurations(configs), nil
}

// mergeConfigurations merges multiple Config objects into a single Config
// Later files override scalar values, labels are concatenated without duplicates
func mergeConfigurations(configs []*Config) *Config {
	merged := &Config{}
	seenLabels := make(map[string]bool)

	for _, config := range configs {
		if config.Token != "" {
			merged.Token = config.Token
		}
		if config.APIURL != "" {
			merged.APIURL = config.APIURL
		}
		if config.BaseDirectory != "" {
			merged.BaseDirectory = config.BaseDirectory
		}
		merged.Interactive = merged.Interactive || config.Interactive
		merged.Draft = merged.Draft || config.Draft

		for _, label := range config.Labels {
			if seenLabels[label] {
				continue
			}
			seenLabels[label] = true
			merged.Labels = append(merged.Labels, label)
		}
	}

	return merged
}
