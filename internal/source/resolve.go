package source

import (
	"context"
	"strings"

	"docsmith/internal/apperr"
	"docsmith/internal/models"
)

// Method names how the caller supplied its source material.
type Method string

const (
	MethodCode   Method = "code"
	MethodGitHub Method = "github"
	MethodGit    Method = "git"
	MethodUpload Method = "upload"
)

// ParseMethod trims and lowercases raw before matching.
func ParseMethod(raw string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case MethodCode, MethodGitHub, MethodGit, MethodUpload:
		return m, nil
	}
	return "", apperr.Validation("source.ParseMethod", "unknown source method %q", raw)
}

// Request is one generate input. Data is the pasted text for code, the
// repository URL for github and git, and the project name for upload.
type Request struct {
	Method Method
	Data   string
	Files  []models.SourceFile
}

// RepositoryFetcher reads a GitHub repository through the REST API.
type RepositoryFetcher interface {
	Fetch(ctx context.Context, token, owner, name string) (*models.RepositoryDescriptor, error)
}

// URLFetcher reads a repository from any git URL.
type URLFetcher interface {
	Fetch(ctx context.Context, rawURL, token string) (*models.RepositoryDescriptor, error)
}

// Resolver turns a Request into the SourceContext the prompt builder takes.
type Resolver struct {
	GitHub RepositoryFetcher
	Clone  URLFetcher
}

func NewResolver(github RepositoryFetcher, clone URLFetcher) *Resolver {
	return &Resolver{GitHub: github, Clone: clone}
}

// Resolve dispatches on req.Method. token is the caller's GitHub token and
// may be empty. GitHub URLs given with the git method still go through the
// API when a GitHub fetcher is configured.
func (r *Resolver) Resolve(ctx context.Context, req Request, token string) (models.SourceContext, error) {
	const op = "source.Resolve"
	switch req.Method {
	case MethodCode:
		if strings.TrimSpace(req.Data) == "" {
			return models.SourceContext{}, apperr.Validation(op, "source text is empty")
		}
		return models.TextSource(req.Data), nil

	case MethodUpload:
		desc, err := FromUploads(req.Data, req.Files)
		if err != nil {
			return models.SourceContext{}, err
		}
		return models.RepositorySource(desc), nil

	case MethodGitHub, MethodGit:
		ref, err := ParseRepositoryURL(req.Data)
		if err != nil {
			return models.SourceContext{}, err
		}
		if ref.IsGitHub() && r.GitHub != nil {
			desc, err := r.GitHub.Fetch(ctx, token, ref.Owner, ref.Name)
			if err != nil {
				return models.SourceContext{}, err
			}
			return models.RepositorySource(desc), nil
		}
		if req.Method == MethodGitHub && !ref.IsGitHub() {
			return models.SourceContext{}, apperr.Validation(op, "%s is not a GitHub repository", req.Data)
		}
		if r.Clone == nil {
			return models.SourceContext{}, apperr.New(apperr.KindInternal, op, "git ingestion is not configured")
		}
		cloneToken := ""
		if ref.IsGitHub() {
			cloneToken = token
		}
		desc, err := r.Clone.Fetch(ctx, req.Data, cloneToken)
		if err != nil {
			return models.SourceContext{}, err
		}
		return models.RepositorySource(desc), nil

	default:
		return models.SourceContext{}, apperr.Validation(op, "unknown source method %q", req.Method)
	}
}
