package actions

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/mxcd/tpd-github/internal/configuration"
	"github.com/mxcd/tpd-github/internal/git"
	"github.com/mxcd/tpd-github/internal/plan"
	"github.com/mxcd/tpd-github/internal/template"
	"github.com/rs/zerolog/log"
)

// ErrAborted is returned when the user declines the confirmation prompt
var ErrAborted = errors.New("aborted by user")

// Options are shared by the persist, plan and validate commands.
// Flag values override the configuration file, empty values keep it.
type Options struct {
	ConfigPath    string
	Templates     string
	TemplatesFile string
	BaseDirectory string
	APIURL        string
	Token         string
	Labels        []string
	Draft         bool
	Interactive   bool
	OutputFormat  string

	// the GitHub API client, local git, the terminal prompt and stdout are used when nil
	Publisher      Publisher
	RepoInfo       plan.RepoInfoProvider
	Confirm        ConfirmFunc
	Output         io.Writer
	ProgressOutput io.Writer
}

func (o *Options) output() io.Writer {
	if o.Output == nil {
		return os.Stdout
	}
	return o.Output
}

func (o *Options) outputFormat() string {
	if o.OutputFormat == "" {
		return OutputFormatTable
	}
	return o.OutputFormat
}

// loadConfiguration reads the optional configuration file, applies flag overrides and validates the result
func loadConfiguration(options *Options) (*configuration.Config, error) {
	config := &configuration.Config{}
	if options.ConfigPath != "" {
		log.Debug().Str("config", options.ConfigPath).Msg("Loading configuration...")

		loaded, err := configuration.LoadConfiguration(options.ConfigPath)
		if err != nil {
			log.Error().Err(err).Msg("Failed to load configuration")
			return nil, fmt.Errorf("configuration load error: %w", err)
		}
		config = loaded
	}

	if options.Token != "" {
		config.Token = options.Token
	}
	if options.APIURL != "" {
		config.APIURL = options.APIURL
	}
	if options.BaseDirectory != "" {
		config.BaseDirectory = options.BaseDirectory
	}
	config.Draft = config.Draft || options.Draft
	config.Interactive = config.Interactive || options.Interactive
	for _, label := range options.Labels {
		if !slices.Contains(config.Labels, label) {
			config.Labels = append(config.Labels, label)
		}
	}
	config.ApplyDefaults()

	validationResult := configuration.ValidateConfiguration(config)
	if !validationResult.Valid {
		log.Error().Msg("Configuration validation failed")
		for _, validationErr := range validationResult.Errors {
			log.Error().Str("field", validationErr.Field).Msg(validationErr.Message)
		}
		return nil, fmt.Errorf("configuration validation failed: %s", validationResult.Error())
	}

	return config, nil
}

// loadTemplates reads descriptors from the inline JSON document or from a file, "-" reads stdin
func loadTemplates(options *Options) ([]*template.Descriptor, error) {
	switch {
	case options.Templates != "" && options.TemplatesFile != "":
		return nil, fmt.Errorf("templates and templates file are mutually exclusive")
	case options.Templates != "":
		return template.ParseDescriptors([]byte(options.Templates))
	case options.TemplatesFile == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read templates from stdin: %w", err)
		}
		return template.ParseDescriptors(data)
	case options.TemplatesFile != "":
		return template.LoadDescriptors(options.TemplatesFile)
	default:
		return nil, fmt.Errorf("no templates given, use --templates or --templates-file")
	}
}

// newPersister wires the configured collaborators
func newPersister(config *configuration.Config, options *Options) *Persister {
	publisher := options.Publisher
	if publisher == nil {
		publisher = git.NewGitHubClient(config.Token, config.APIURL)
	}

	var repoInfo plan.RepoInfoProvider = options.RepoInfo
	if repoInfo == nil {
		repoInfo = git.NewLocalRepository()
	}

	persister := NewPersister(config, publisher, repoInfo)
	if options.ProgressOutput != nil {
		persister.SetProgressOutput(options.ProgressOutput)
	}
	return persister
}
