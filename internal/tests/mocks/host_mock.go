package mocks

import (
	"context"

	"docsmith/internal/githost"
	"docsmith/internal/models"
)

// HostMock records the order of host calls in Calls.
type HostMock struct {
	GetFileFunc           func(ctx context.Context, owner, repo, path, ref string) (*models.RemoteFileHandle, error)
	PutFileFunc           func(ctx context.Context, req githost.PutFileRequest) (*models.CommitResult, error)
	GetBranchHeadFunc     func(ctx context.Context, owner, repo, branch string) (string, error)
	CreateBranchFunc      func(ctx context.Context, owner, repo, branch, fromSHA string) error
	CreatePullRequestFunc func(ctx context.Context, req githost.NewPullRequest) (*models.PullRequestResult, error)

	Calls []string
}

func (m *HostMock) GetFile(ctx context.Context, owner, repo, path, ref string) (*models.RemoteFileHandle, error) {
	m.Calls = append(m.Calls, "GetFile")
	if m.GetFileFunc != nil {
		return m.GetFileFunc(ctx, owner, repo, path, ref)
	}
	return &models.RemoteFileHandle{Path: path}, nil
}

func (m *HostMock) PutFile(ctx context.Context, req githost.PutFileRequest) (*models.CommitResult, error) {
	m.Calls = append(m.Calls, "PutFile")
	if m.PutFileFunc != nil {
		return m.PutFileFunc(ctx, req)
	}
	return &models.CommitResult{SHA: "commit-sha", Path: req.Path, Branch: req.Branch, Created: req.SHA == ""}, nil
}

func (m *HostMock) GetBranchHead(ctx context.Context, owner, repo, branch string) (string, error) {
	m.Calls = append(m.Calls, "GetBranchHead")
	if m.GetBranchHeadFunc != nil {
		return m.GetBranchHeadFunc(ctx, owner, repo, branch)
	}
	return "base-sha", nil
}

func (m *HostMock) CreateBranch(ctx context.Context, owner, repo, branch, fromSHA string) error {
	m.Calls = append(m.Calls, "CreateBranch")
	if m.CreateBranchFunc != nil {
		return m.CreateBranchFunc(ctx, owner, repo, branch, fromSHA)
	}
	return nil
}

func (m *HostMock) CreatePullRequest(ctx context.Context, req githost.NewPullRequest) (*models.PullRequestResult, error) {
	m.Calls = append(m.Calls, "CreatePullRequest")
	if m.CreatePullRequestFunc != nil {
		return m.CreatePullRequestFunc(ctx, req)
	}
	return &models.PullRequestResult{Number: 1, Title: req.Title, Head: req.Head, Base: req.Base}, nil
}
