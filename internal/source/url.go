// Package source turns user input (repository URLs, local directories,
// uploads) into the SourceContext the prompt builder consumes.
package source

import (
	"net/url"
	"regexp"
	"strings"

	"docsmith/internal/apperr"
)

const GitHubHost = "github.com"

// RepositoryRef identifies a repository on a git host.
type RepositoryRef struct {
	Host  string
	Owner string
	Name  string
}

func (r RepositoryRef) IsGitHub() bool { return strings.EqualFold(r.Host, GitHubHost) }

func (r RepositoryRef) FullName() string { return r.Owner + "/" + r.Name }

// CloneURL is the https URL for the repository.
func (r RepositoryRef) CloneURL() string {
	return "https://" + r.Host + "/" + r.Owner + "/" + r.Name + ".git"
}

var (
	shortForm = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)/([A-Za-z0-9._-]+)$`)
	scpForm   = regexp.MustCompile(`^[A-Za-z0-9._-]+@([A-Za-z0-9.-]+):([^/]+)/(.+)$`)
)

// ParseRepositoryURL accepts https, ssh, scp-like and "owner/name" forms.
// Bare owner/name refers to GitHub.
func ParseRepositoryURL(raw string) (RepositoryRef, error) {
	const op = "source.ParseRepositoryURL"
	s := strings.TrimSpace(raw)
	if s == "" {
		return RepositoryRef{}, apperr.Validation(op, "repository URL is empty")
	}

	if m := shortForm.FindStringSubmatch(s); m != nil {
		return newRef(op, GitHubHost, m[1], m[2], raw)
	}
	if m := scpForm.FindStringSubmatch(s); m != nil && !strings.Contains(s, "://") {
		return newRef(op, m[1], m[2], m[3], raw)
	}

	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return RepositoryRef{}, apperr.Validation(op, "%q is not a repository URL", raw)
	}
	switch u.Scheme {
	case "http", "https", "ssh", "git":
	default:
		return RepositoryRef{}, apperr.Validation(op, "unsupported URL scheme %q", u.Scheme)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return RepositoryRef{}, apperr.Validation(op, "%q does not name an owner and repository", raw)
	}
	return newRef(op, u.Hostname(), parts[0], parts[1], raw)
}

func newRef(op, host, owner, name, raw string) (RepositoryRef, error) {
	name = strings.TrimSuffix(strings.TrimSuffix(name, "/"), ".git")
	if i := strings.Index(name, "/"); i >= 0 {
		name = name[:i]
	}
	if owner == "" || name == "" || name == "." || name == ".." {
		return RepositoryRef{}, apperr.Validation(op, "%q does not name an owner and repository", raw)
	}
	return RepositoryRef{Host: strings.ToLower(host), Owner: owner, Name: name}, nil
}
