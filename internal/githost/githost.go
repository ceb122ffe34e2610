// Package githost talks to the GitHub REST API on behalf of a user token.
// Every method is a single authenticated call; nothing is cached between
// calls except the API client itself.
package githost

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v56/github"

	"docsmith/internal/models"
)

// Host is the remote version-control surface the publisher needs.
type Host interface {
	GetFile(ctx context.Context, owner, repo, path, ref string) (*models.RemoteFileHandle, error)
	PutFile(ctx context.Context, req PutFileRequest) (*models.CommitResult, error)
	GetBranchHead(ctx context.Context, owner, repo, branch string) (string, error)
	CreateBranch(ctx context.Context, owner, repo, branch, fromSHA string) error
	CreatePullRequest(ctx context.Context, req NewPullRequest) (*models.PullRequestResult, error)
}

// RepositoryReader is the read surface used to ingest a repository.
type RepositoryReader interface {
	GetRepository(ctx context.Context, owner, repo string) (*RepositoryInfo, error)
	ListTree(ctx context.Context, owner, repo, ref string) ([]TreeEntry, error)
	ReadFile(ctx context.Context, owner, repo, path, ref string) (string, error)
}

// PutFileRequest creates the file when SHA is empty and updates it otherwise.
type PutFileRequest struct {
	Owner   string
	Repo    string
	Path    string
	Branch  string
	Message string
	Content []byte
	SHA     string
}

type NewPullRequest struct {
	Owner string
	Repo  string
	Title string
	Body  string
	Head  string
	Base  string
}

type RepositoryInfo struct {
	Owner         string
	Name          string
	Description   string
	Language      string
	HTMLURL       string
	DefaultBranch string
}

type TreeEntry struct {
	Path string
	Size int
}

// Client implements Host and RepositoryReader with go-github.
type Client struct {
	gh *github.Client
}

var (
	_ Host             = (*Client)(nil)
	_ RepositoryReader = (*Client)(nil)
)

// NewClient builds a token-authenticated client. An empty token gives an
// anonymous client; an empty baseURL targets api.github.com.
func NewClient(token, baseURL string) (*Client, error) {
	gh := github.NewClient(nil)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		gh.BaseURL = u
	}
	return &Client{gh: gh}, nil
}

func (c *Client) GetFile(ctx context.Context, owner, repo, path, ref string) (*models.RemoteFileHandle, error) {
	const op = "githost.GetFile"
	var opts *github.RepositoryContentGetOptions
	if ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: ref}
	}
	file, dir, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		return nil, classify(op, resp, err)
	}
	if file == nil && dir != nil {
		return nil, remoteError(op, 0, fmt.Sprintf("%s is a directory", path))
	}
	return &models.RemoteFileHandle{Path: path, ContentSHA: file.GetSHA()}, nil
}

func (c *Client) PutFile(ctx context.Context, req PutFileRequest) (*models.CommitResult, error) {
	const op = "githost.PutFile"
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(req.Message),
		Content: req.Content,
	}
	if req.Branch != "" {
		opts.Branch = github.String(req.Branch)
	}

	var (
		res  *github.RepositoryContentResponse
		resp *github.Response
		err  error
	)
	created := req.SHA == ""
	if created {
		res, resp, err = c.gh.Repositories.CreateFile(ctx, req.Owner, req.Repo, req.Path, opts)
	} else {
		opts.SHA = github.String(req.SHA)
		res, resp, err = c.gh.Repositories.UpdateFile(ctx, req.Owner, req.Repo, req.Path, opts)
	}
	if err != nil {
		return nil, classify(op, resp, err)
	}

	result := &models.CommitResult{Path: req.Path, Branch: req.Branch, Created: created}
	if res != nil {
		result.SHA = res.Commit.GetSHA()
		result.URL = res.Commit.GetHTMLURL()
		if result.URL == "" && res.Content != nil {
			result.URL = res.Content.GetHTMLURL()
		}
	}
	return result, nil
}

func (c *Client) GetBranchHead(ctx context.Context, owner, repo, branch string) (string, error) {
	ref, resp, err := c.gh.Git.GetRef(ctx, owner, repo, "heads/"+branch)
	if err != nil {
		return "", classify("githost.GetBranchHead", resp, err)
	}
	return ref.GetObject().GetSHA(), nil
}

func (c *Client) CreateBranch(ctx context.Context, owner, repo, branch, fromSHA string) error {
	_, resp, err := c.gh.Git.CreateRef(ctx, owner, repo, &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: github.String(fromSHA)},
	})
	if err != nil {
		return classify("githost.CreateBranch", resp, err)
	}
	return nil
}

func (c *Client) CreatePullRequest(ctx context.Context, req NewPullRequest) (*models.PullRequestResult, error) {
	pr, resp, err := c.gh.PullRequests.Create(ctx, req.Owner, req.Repo, &github.NewPullRequest{
		Title: github.String(req.Title),
		Head:  github.String(req.Head),
		Base:  github.String(req.Base),
		Body:  github.String(req.Body),
	})
	if err != nil {
		return nil, classify("githost.CreatePullRequest", resp, err)
	}
	return &models.PullRequestResult{
		Number: pr.GetNumber(),
		URL:    pr.GetHTMLURL(),
		Title:  pr.GetTitle(),
		Head:   req.Head,
		Base:   req.Base,
	}, nil
}

func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*RepositoryInfo, error) {
	r, resp, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, classify("githost.GetRepository", resp, err)
	}
	return &RepositoryInfo{
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		Description:   r.GetDescription(),
		Language:      r.GetLanguage(),
		HTMLURL:       r.GetHTMLURL(),
		DefaultBranch: r.GetDefaultBranch(),
	}, nil
}

// ListTree returns the blobs reachable from ref, recursively.
func (c *Client) ListTree(ctx context.Context, owner, repo, ref string) ([]TreeEntry, error) {
	tree, resp, err := c.gh.Git.GetTree(ctx, owner, repo, ref, true)
	if err != nil {
		return nil, classify("githost.ListTree", resp, err)
	}
	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		if e.GetType() != "blob" {
			continue
		}
		entries = append(entries, TreeEntry{Path: e.GetPath(), Size: e.GetSize()})
	}
	return entries, nil
}

func (c *Client) ReadFile(ctx context.Context, owner, repo, path, ref string) (string, error) {
	const op = "githost.ReadFile"
	var opts *github.RepositoryContentGetOptions
	if ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: ref}
	}
	file, _, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		return "", classify(op, resp, err)
	}
	if file == nil {
		return "", remoteError(op, 0, fmt.Sprintf("%s is a directory", path))
	}
	content, err := file.GetContent()
	if err != nil {
		return "", remoteError(op, 0, fmt.Sprintf("decode %s: %v", path, err))
	}
	return content, nil
}
