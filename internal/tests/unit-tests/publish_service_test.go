package unit_tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsmith/internal/apperr"
	"docsmith/internal/githost"
	"docsmith/internal/models"
	"docsmith/internal/services"
	"docsmith/internal/tests/mocks"
)

var githubSession = models.Session{UserID: "u1", AccessToken: "gh-token", Provider: models.ProviderGitHub}

func newPublisher(t *testing.T) (services.PublishService, *mocks.GitHubServer) {
	t.Helper()
	srv := mocks.NewGitHubServer()
	t.Cleanup(srv.Close)
	hosts := func(token string) (githost.Host, error) {
		return githost.NewClient(token, srv.BaseURL())
	}
	now := func() time.Time { return time.Unix(1700000000, 0) }
	return services.NewPublishService(hosts, services.PublishOptions{Now: now}), srv
}

func readmeCommit(content string) models.CommitRequest {
	return models.CommitRequest{
		Owner: "acme", Repo: "widgets", Path: "README.md",
		Content: content, Message: "docs: update README",
	}
}

func TestPublishService_RequiresGitHubSession(t *testing.T) {
	hostCalls := 0
	svc := services.NewPublishService(func(token string) (githost.Host, error) {
		hostCalls++
		return &mocks.HostMock{}, nil
	}, services.PublishOptions{})

	sessions := []models.Session{
		{UserID: "u1", AccessToken: "tok", Provider: "gitlab"},
		{UserID: "u1", Provider: models.ProviderGitHub},
		{UserID: "u1", AccessToken: "  ", Provider: models.ProviderGitHub},
	}
	for _, sess := range sessions {
		_, err := svc.Commit(context.Background(), sess, readmeCommit("# x"))
		assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
		assert.Equal(t, apperr.CodeUnauthorized, apperr.As(err).Code())
	}
	assert.Equal(t, 0, hostCalls)
}

func TestPublishService_Commit_CreatesMissingFile(t *testing.T) {
	recorded := captureEvents(t)
	svc, srv := newPublisher(t)

	res, err := svc.Commit(context.Background(), githubSession, readmeCommit("# Widgets"))
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.NotEmpty(t, res.SHA)
	assert.Equal(t, "main", res.Branch)
	_, hasSHA := srv.LastPut()["sha"]
	assert.False(t, hasSHA)
	content, ok := srv.FileContent("main", "README.md")
	require.True(t, ok)
	assert.Equal(t, "# Widgets", content)

	assert.Equal(t, []string{"fetching_handle", "creating", "committed"}, publishStates(recorded()))
}

func TestPublishService_Commit_UpdatesExistingFile(t *testing.T) {
	recorded := captureEvents(t)
	svc, srv := newPublisher(t)
	sha := srv.SeedFile("main", "README.md", "# Old")

	res, err := svc.Commit(context.Background(), githubSession, readmeCommit("# New"))
	require.NoError(t, err)

	assert.False(t, res.Created)
	assert.Equal(t, sha, srv.LastPut()["sha"])
	assert.Equal(t, []string{"fetching_handle", "updating", "committed"}, publishStates(recorded()))
}

func TestPublishService_Commit_IdenticalContentTwice(t *testing.T) {
	svc, srv := newPublisher(t)
	srv.SeedFile("main", "README.md", "# Old")

	first, err := svc.Commit(context.Background(), githubSession, readmeCommit("# Same"))
	require.NoError(t, err)
	second, err := svc.Commit(context.Background(), githubSession, readmeCommit("# Same"))
	require.NoError(t, err)

	assert.NotEqual(t, first.SHA, second.SHA)
	assert.False(t, second.Created)
	content, _ := srv.FileContent("main", "README.md")
	assert.Equal(t, "# Same", content)
}

func TestPublishService_Commit_FetchErrorFailsFast(t *testing.T) {
	recorded := captureEvents(t)
	host := &mocks.HostMock{
		GetFileFunc: func(ctx context.Context, owner, repo, path, ref string) (*models.RemoteFileHandle, error) {
			return nil, &apperr.Error{Kind: apperr.KindRemoteHost, Op: "githost.GetFile", Message: "Server Error", Status: 500}
		},
	}
	svc := services.NewPublishService(func(string) (githost.Host, error) { return host, nil }, services.PublishOptions{})

	_, err := svc.Commit(context.Background(), githubSession, readmeCommit("# x"))
	require.Error(t, err)
	assert.Equal(t, "Server Error", apperr.As(err).Message)
	assert.Equal(t, []string{"GetFile"}, host.Calls)
	assert.Equal(t, []string{"fetching_handle", "failed"}, publishStates(recorded()))
}

func TestPublishService_Commit_ConflictSurfacesHostMessage(t *testing.T) {
	host := &mocks.HostMock{
		GetFileFunc: func(ctx context.Context, owner, repo, path, ref string) (*models.RemoteFileHandle, error) {
			return &models.RemoteFileHandle{Path: path, ContentSHA: "old"}, nil
		},
		PutFileFunc: func(ctx context.Context, req githost.PutFileRequest) (*models.CommitResult, error) {
			assert.Equal(t, "old", req.SHA)
			return nil, &apperr.Error{Kind: apperr.KindRemoteHost, Message: "README.md does not match old", Status: 409}
		},
	}
	svc := services.NewPublishService(func(string) (githost.Host, error) { return host, nil }, services.PublishOptions{})

	_, err := svc.Commit(context.Background(), githubSession, readmeCommit("# x"))
	e := apperr.As(err)
	assert.Equal(t, apperr.KindRemoteHost, e.Kind)
	assert.Equal(t, "README.md does not match old", e.Message)
	assert.Equal(t, 409, e.Status)
}

func TestPublishService_Commit_Validation(t *testing.T) {
	host := &mocks.HostMock{}
	svc := services.NewPublishService(func(string) (githost.Host, error) { return host, nil }, services.PublishOptions{})

	req := readmeCommit("# x")
	req.Message = ""
	_, err := svc.Commit(context.Background(), githubSession, req)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, host.Calls)
}

func TestPublishService_PullRequest_FreshBranch(t *testing.T) {
	recorded := captureEvents(t)
	svc, srv := newPublisher(t)
	srv.SeedFile("main", "README.md", "# Old")

	pr, err := svc.CreatePullRequest(context.Background(), githubSession, models.PullRequestRequest{
		CommitRequest: readmeCommit("# New"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, pr.Number)
	assert.Equal(t, "docs/update-1700000000", pr.Head)
	assert.Equal(t, "main", pr.Base)
	assert.Equal(t, "docs: update README", pr.Title)
	require.NotNil(t, pr.Commit)
	assert.False(t, pr.Commit.Created)

	head, _ := srv.FileContent("docs/update-1700000000", "README.md")
	assert.Equal(t, "# New", head)
	base, _ := srv.FileContent("main", "README.md")
	assert.Equal(t, "# Old", base)
	assert.Contains(t, srv.LastPull()["body"], "README.md")

	assert.Equal(t,
		[]string{"branch_pending", "fetching_handle", "committing", "pr_creating", "pr_created"},
		publishStates(recorded()))
}

func TestPublishService_PullRequest_ExistingBranchIsReused(t *testing.T) {
	svc, srv := newPublisher(t)
	srv.SeedBranch("docs/readme-1", "base-sha")

	res, err := svc.Publish(context.Background(), githubSession, models.PublishRequest{
		Mode:    models.PublishPullRequest,
		DocType: models.DocReadme,
		PullRequestRequest: models.PullRequestRequest{
			CommitRequest: models.CommitRequest{Owner: "acme", Repo: "widgets", Content: "# Readme", Message: "docs: readme"},
			Head:          "docs/readme-1",
			Title:         "Add README",
			Body:          "Generated README",
		},
	})
	require.NoError(t, err)

	require.NotNil(t, res.PullRequest)
	assert.Nil(t, res.Commit)
	assert.Equal(t, 1, res.PullRequest.Number)
	assert.Equal(t, "Add README", res.PullRequest.Title)
	assert.Equal(t, "Generated README", srv.LastPull()["body"])
	content, ok := srv.FileContent("docs/readme-1", "README.md")
	require.True(t, ok)
	assert.Equal(t, "# Readme", content)
}

func TestPublishService_PullRequest_MissingBaseIsNotFound(t *testing.T) {
	recorded := captureEvents(t)
	svc, srv := newPublisher(t)

	_, err := svc.CreatePullRequest(context.Background(), githubSession, models.PullRequestRequest{
		CommitRequest: readmeCommit("# New"),
		Base:          "develop",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.As(err).Code())
	assert.Contains(t, err.Error(), "develop")
	assert.Equal(t, 0, srv.PullCount())
	assert.Equal(t, []string{"branch_pending", "failed"}, publishStates(recorded()))
}

func TestPublishService_PullRequest_BranchFailureOtherThanExistsIsFatal(t *testing.T) {
	host := &mocks.HostMock{
		CreateBranchFunc: func(ctx context.Context, owner, repo, branch, fromSHA string) error {
			return &apperr.Error{Kind: apperr.KindRemoteHost, Message: "Resource not accessible by integration", Status: 403}
		},
	}
	svc := services.NewPublishService(func(string) (githost.Host, error) { return host, nil }, services.PublishOptions{})

	_, err := svc.CreatePullRequest(context.Background(), githubSession, models.PullRequestRequest{CommitRequest: readmeCommit("# x")})
	require.Error(t, err)
	assert.Equal(t, "Resource not accessible by integration", apperr.As(err).Message)
	assert.Equal(t, []string{"GetBranchHead", "CreateBranch"}, host.Calls)
}

func TestPublishService_PullRequest_CallOrder(t *testing.T) {
	host := &mocks.HostMock{
		CreateBranchFunc: func(ctx context.Context, owner, repo, branch, fromSHA string) error {
			assert.Equal(t, "base-sha", fromSHA)
			return &apperr.Error{Kind: apperr.KindRemoteHost, Message: "Reference already exists", Status: 422, Err: githost.ErrBranchExists}
		},
	}
	svc := services.NewPublishService(func(string) (githost.Host, error) { return host, nil }, services.PublishOptions{})

	_, err := svc.CreatePullRequest(context.Background(), githubSession, models.PullRequestRequest{CommitRequest: readmeCommit("# x"), Head: "docs/x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"GetBranchHead", "CreateBranch", "GetFile", "PutFile", "CreatePullRequest"}, host.Calls)
}

func TestPublishService_Publish_CommitModeUsesDefaultPath(t *testing.T) {
	svc, srv := newPublisher(t)

	res, err := svc.Publish(context.Background(), githubSession, models.PublishRequest{
		Mode:    models.PublishCommit,
		DocType: models.DocAPI,
		PullRequestRequest: models.PullRequestRequest{
			CommitRequest: models.CommitRequest{Owner: "acme", Repo: "widgets", Content: "# API", Message: "docs: api"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Commit)
	assert.Equal(t, "docs/API.md", res.Commit.Path)
	_, ok := srv.FileContent("main", "docs/API.md")
	assert.True(t, ok)
}

func TestPublishService_Publish_UnknownMode(t *testing.T) {
	svc := services.NewPublishService(func(string) (githost.Host, error) { return &mocks.HostMock{}, nil }, services.PublishOptions{})
	_, err := svc.Publish(context.Background(), githubSession, models.PublishRequest{Mode: "push"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestPublishService_HostFactoryError(t *testing.T) {
	svc := services.NewPublishService(func(string) (githost.Host, error) { return nil, errors.New("bad base url") }, services.PublishOptions{})
	_, err := svc.Commit(context.Background(), githubSession, readmeCommit("# x"))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}
