package plan

import "strings"

// ParseRemoteSlug reduces a git remote URL to its owner/repo form.
//
//	git@github.com:org/repo.git     -> org/repo
//	https://github.com/org/repo.git -> org/repo
func ParseRemoteSlug(remoteURL string) (string, error) {
	url := strings.TrimSpace(remoteURL)

	var slug string
	switch {
	case strings.HasPrefix(url, "git@") || strings.HasPrefix(url, "git://"):
		slug = url[strings.LastIndex(url, ":")+1:]
	case strings.HasPrefix(url, "http"):
		parts := strings.Split(strings.TrimSuffix(url, "/"), "/")
		if len(parts) < 2 {
			return "", &UnsupportedRemoteFormatError{URL: remoteURL}
		}
		slug = strings.Join(parts[len(parts)-2:], "/")
	default:
		return "", &UnsupportedRemoteFormatError{URL: remoteURL}
	}

	return strings.TrimSuffix(slug, ".git"), nil
}
