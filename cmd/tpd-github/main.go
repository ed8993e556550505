package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mxcd/tpd-github/internal/actions"
	"github.com/mxcd/tpd-github/internal/util"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

var version = "development"

func main() {

	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{},
		Usage:   "print only the version",
	}

	cmd := &cli.Command{
		Name:    "tpd-github",
		Version: version,
		Usage:   "Publish rendered templates as one pull request per GitHub repository",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "debug output",
				Sources: cli.EnvVars("TPD_GITHUB_VERBOSE"),
			},
			&cli.BoolFlag{
				Name:    "very-verbose",
				Aliases: []string{"vv"},
				Usage:   "trace output",
				Sources: cli.EnvVars("TPD_GITHUB_VERY_VERBOSE"),
			},
			&cli.BoolFlag{
				Name:    "log-json",
				Usage:   "write logs as JSON lines instead of the console format",
				Sources: cli.EnvVars("TPD_GITHUB_LOG_JSON"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return initCli(ctx, cmd)
		},
		Commands: []*cli.Command{
			{
				Name:   "persist",
				Usage:  "Open or update one pull request per destination repository",
				Flags:  append(templateFlags(), publishFlags()...),
				Action: persistCommand,
			},
			{
				Name:   "plan",
				Usage:  "Show the pull requests persist would open, without touching GitHub",
				Flags:  templateFlags(),
				Action: planCommand,
			},
			{
				Name:   "validate",
				Usage:  "Validate configuration and templates",
				Flags:  templateFlags(),
				Action: validateCommand,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("command terminated with error")
	}
}

func initCli(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	godotenv.Load()
	util.SetCliLoggerDefaults(cmd)
	util.SetCliLogLevel(cmd)
	log.Trace().Msg("Trace logging enabled")
	log.Debug().Msg("Debug logging enabled")

	return ctx, nil
}

func templateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to an optional configuration file or directory",
			Sources: cli.EnvVars("TPD_GITHUB_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "templates",
			Aliases: []string{"t"},
			Usage:   "Rendered templates as a JSON document",
			Sources: cli.EnvVars("TPD_GITHUB_TEMPLATES"),
		},
		&cli.StringFlag{
			Name:    "templates-file",
			Aliases: []string{"f"},
			Usage:   "Rendered templates from a JSON or YAML file, a directory of them, or - for stdin",
		},
		&cli.StringFlag{
			Name:    "base-dir",
			Aliases: []string{"d"},
			Usage:   "Local repository the commit message is derived from (default: .)",
			Sources: cli.EnvVars("TPD_GITHUB_BASE_DIR"),
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "Output format: table, json, yaml",
			Value: actions.OutputFormatTable,
		},
	}
}

func publishFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "token",
			Usage:   "GitHub token",
			Sources: cli.EnvVars("GITHUB_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "api-url",
			Usage:   "GitHub API URL (default: https://api.github.com)",
			Sources: cli.EnvVars("GITHUB_API_URL"),
		},
		&cli.BoolFlag{
			Name:    "interactive",
			Aliases: []string{"i"},
			Usage:   "Confirm before opening pull requests",
		},
		&cli.BoolFlag{
			Name:  "draft",
			Usage: "Open new pull requests as drafts",
		},
		&cli.StringSliceFlag{
			Name:  "label",
			Usage: "Label to add to every pull request, repeatable",
		},
	}
}

func optionsFromCommand(cmd *cli.Command) *actions.Options {
	return &actions.Options{
		ConfigPath:    cmd.String("config"),
		Templates:     cmd.String("templates"),
		TemplatesFile: cmd.String("templates-file"),
		BaseDirectory: cmd.String("base-dir"),
		APIURL:        cmd.String("api-url"),
		Token:         cmd.String("token"),
		Labels:        cmd.StringSlice("label"),
		Draft:         cmd.Bool("draft"),
		Interactive:   cmd.Bool("interactive"),
		OutputFormat:  cmd.String("output"),
	}
}

func persistCommand(ctx context.Context, cmd *cli.Command) error {
	result, err := actions.Persist(ctx, optionsFromCommand(cmd))
	if errors.Is(err, actions.ErrAborted) {
		log.Info().Msg("Aborted, no pull request opened")
		return nil
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("Persist error: %v", err), 3)
	}

	if result.HasInvalidTemplates() {
		return cli.Exit("Invalid templates, no pull request was opened", 3)
	}
	if result.Failed() {
		return cli.Exit("", 1)
	}
	return nil
}

func planCommand(ctx context.Context, cmd *cli.Command) error {
	result, err := actions.Plan(ctx, optionsFromCommand(cmd))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Plan error: %v", err), 3)
	}

	if result.HasInvalidTemplates() {
		return cli.Exit("Invalid templates", 3)
	}
	if result.Failed() {
		return cli.Exit("", 1)
	}
	return nil
}

func validateCommand(ctx context.Context, cmd *cli.Command) error {
	invalid, err := actions.Validate(optionsFromCommand(cmd))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Validation error: %v", err), 3)
	}

	if len(invalid) > 0 {
		return cli.Exit(fmt.Sprintf("%d invalid template(s)", len(invalid)), 3)
	}
	return nil
}
