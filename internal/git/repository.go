package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// LocalRepository inspects a local working copy through the git command line
type LocalRepository struct {
	// Binary is the git executable, "git" when empty
	Binary string
}

// NewLocalRepository creates a LocalRepository using git from PATH
func NewLocalRepository() *LocalRepository {
	return &LocalRepository{Binary: "git"}
}

// RemoteAndCommit returns the origin remote URL and the short HEAD commit of the working copy in workingDirectory
func (r *LocalRepository) RemoteAndCommit(ctx context.Context, workingDirectory string) (string, string, error) {
	if workingDirectory == "" {
		return "", "", fmt.Errorf("base directory is not set")
	}
	if !isDirectory(workingDirectory) {
		return "", "", fmt.Errorf("base directory does not exist: %s", workingDirectory)
	}

	remoteURL, err := r.getRemoteURL(ctx, workingDirectory)
	if err != nil {
		return "", "", err
	}

	commit, err := r.getShortCommit(ctx, workingDirectory)
	if err != nil {
		return "", "", err
	}

	log.Debug().
		Str("dir", workingDirectory).
		Str("remoteURL", remoteURL).
		Str("commit", commit).
		Msg("Read local repository information")

	return remoteURL, commit, nil
}

// getRemoteURL gets the remote URL for origin
func (r *LocalRepository) getRemoteURL(ctx context.Context, workingDirectory string) (string, error) {
	output, err := r.run(ctx, workingDirectory, "remote", "get-url", "origin")
	if err != nil {
		return "", fmt.Errorf("failed to get remote URL: %w", err)
	}
	return output, nil
}

// getShortCommit gets the abbreviated hash of HEAD
func (r *LocalRepository) getShortCommit(ctx context.Context, workingDirectory string) (string, error) {
	output, err := r.run(ctx, workingDirectory, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to get current commit: %w", err)
	}
	return output, nil
}

func (r *LocalRepository) run(ctx context.Context, workingDirectory string, args ...string) (string, error) {
	binary := r.Binary
	if binary == "" {
		binary = "git"
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = workingDirectory

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("%w, output: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}

	return strings.TrimSpace(string(output)), nil
}

// isDirectory checks if a path is a directory
func isDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
