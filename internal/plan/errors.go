package plan

import "fmt"

// UnsupportedRemoteFormatError is returned when a git remote URL cannot be reduced to owner/repo
type UnsupportedRemoteFormatError struct {
	URL string
}

func (e *UnsupportedRemoteFormatError) Error() string {
	return fmt.Sprintf("unsupported remote URL format: %s", e.URL)
}

// EmptyBatchError is returned when a plan is requested for a repository without changes
type EmptyBatchError struct {
	Repo string
}

func (e *EmptyBatchError) Error() string {
	return fmt.Sprintf("no changes to plan for repository '%s'", e.Repo)
}
