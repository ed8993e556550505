package configuration

// DefaultAPIURL is the GitHub REST endpoint used when no apiUrl is configured
const DefaultAPIURL = "https://api.github.com"

// DefaultBaseDirectory is the working copy the commit message is derived from
const DefaultBaseDirectory = "."

type Config struct {
	// Token authenticates against the GitHub API, usually ${GITHUB_TOKEN}
	Token string `yaml:"token,omitempty"`
	// APIURL overrides the GitHub REST endpoint, e.g. for GitHub Enterprise
	APIURL string `yaml:"apiUrl,omitempty"`
	// BaseDirectory is the local repository holding the templates
	BaseDirectory string `yaml:"baseDirectory,omitempty"`
	// Interactive asks for confirmation before pull requests are opened
	Interactive bool `yaml:"interactive,omitempty"`
	// Draft opens new pull requests as drafts
	Draft bool `yaml:"draft,omitempty"`
	// Labels are added to every opened or updated pull request
	Labels []string `yaml:"labels,omitempty"`
}

// NewDefaultConfig returns a Config with all defaults applied
func NewDefaultConfig() *Config {
	config := &Config{}
	config.ApplyDefaults()
	return config
}

// ApplyDefaults fills unset fields with their default values
func (c *Config) ApplyDefaults() {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.BaseDirectory == "" {
		c.BaseDirectory = DefaultBaseDirectory
	}
}
