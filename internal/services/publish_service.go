package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"docsmith/internal/apperr"
	"docsmith/internal/events"
	"docsmith/internal/githost"
	"docsmith/internal/models"
)

// HostFactory returns a host client authenticated with token.
type HostFactory func(token string) (githost.Host, error)

// PublishService writes documentation back to the user's repository,
// either as a commit on a branch or as a pull request from a fresh branch.
type PublishService interface {
	Commit(ctx context.Context, session models.Session, req models.CommitRequest) (*models.CommitResult, error)
	CreatePullRequest(ctx context.Context, session models.Session, req models.PullRequestRequest) (*models.PullRequestResult, error)
	Publish(ctx context.Context, session models.Session, req models.PublishRequest) (*models.PublishResult, error)
}

type PublishOptions struct {
	Logger *zap.Logger
	// Now stamps ephemeral branch names. Defaults to time.Now.
	Now func() time.Time
}

type publishService struct {
	hosts  HostFactory
	logger *zap.Logger
	now    func() time.Time
}

func NewPublishService(hosts HostFactory, opts PublishOptions) PublishService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &publishService{hosts: hosts, logger: logger.Named("publish"), now: now}
}

func (s *publishService) Commit(ctx context.Context, session models.Session, req models.CommitRequest) (*models.CommitResult, error) {
	run := s.start(ctx, "publish.Commit", req)
	host, err := s.authorize(run, session)
	if err != nil {
		return nil, err
	}
	req = withCommitDefaults(req)
	if err := validateCommit(run.op, req); err != nil {
		return nil, run.fail(err)
	}

	res, err := s.commit(run, host, req, false)
	if err != nil {
		return nil, err
	}
	run.to(models.StateCommitted, "sha", res.SHA)
	return res, nil
}

func (s *publishService) CreatePullRequest(ctx context.Context, session models.Session, req models.PullRequestRequest) (*models.PullRequestResult, error) {
	run := s.start(ctx, "publish.CreatePullRequest", req.CommitRequest)
	host, err := s.authorize(run, session)
	if err != nil {
		return nil, err
	}
	req = s.withPullRequestDefaults(req, "")
	if err := validateCommit(run.op, req.CommitRequest); err != nil {
		return nil, run.fail(err)
	}
	if req.Head == req.Base {
		return nil, run.fail(apperr.Validation(run.op, "head branch %q must differ from base", req.Head))
	}

	run.to(models.StateBranchPending, "head", req.Head, "base", req.Base)
	baseSHA, err := host.GetBranchHead(ctx, req.Owner, req.Repo, req.Base)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, run.fail(&apperr.Error{
				Kind:    apperr.KindNotFound,
				Op:      run.op,
				Message: fmt.Sprintf("base branch %q not found in %s/%s", req.Base, req.Owner, req.Repo),
				Status:  404,
				Err:     err,
			})
		}
		return nil, run.fail(err)
	}
	if err := host.CreateBranch(ctx, req.Owner, req.Repo, req.Head, baseSHA); err != nil {
		if !githost.IsBranchExists(err) {
			return nil, run.fail(err)
		}
		s.logger.Info("head branch already exists, reusing it", zap.String("head", req.Head))
	}

	commit, err := s.commit(run, host, req.CommitRequest, true)
	if err != nil {
		return nil, err
	}

	run.to(models.StatePRCreating)
	body := req.Body
	if strings.TrimSpace(body) == "" {
		body = pullRequestBody(req.CommitRequest, commit)
	}
	pr, err := host.CreatePullRequest(ctx, githost.NewPullRequest{
		Owner: req.Owner,
		Repo:  req.Repo,
		Title: req.Title,
		Body:  body,
		Head:  req.Head,
		Base:  req.Base,
	})
	if err != nil {
		return nil, run.fail(err)
	}
	pr.Commit = commit
	if pr.Head == "" {
		pr.Head = req.Head
	}
	if pr.Base == "" {
		pr.Base = req.Base
	}
	run.to(models.StatePRCreated, "number", fmt.Sprint(pr.Number), "url", pr.URL)
	return pr, nil
}

// Publish dispatches on req.Mode. An empty path falls back to the document
// type's default location.
func (s *publishService) Publish(ctx context.Context, session models.Session, req models.PublishRequest) (*models.PublishResult, error) {
	const op = "publish.Publish"
	if strings.TrimSpace(req.Path) == "" && req.DocType.Valid() {
		req.Path = req.DocType.DefaultPath()
	}
	switch req.Mode {
	case models.PublishCommit:
		res, err := s.Commit(ctx, session, req.CommitRequest)
		if err != nil {
			return nil, err
		}
		return &models.PublishResult{Mode: req.Mode, Commit: res}, nil
	case models.PublishPullRequest:
		prReq := s.withPullRequestDefaults(req.PullRequestRequest, req.DocType)
		res, err := s.CreatePullRequest(ctx, session, prReq)
		if err != nil {
			return nil, err
		}
		return &models.PublishResult{Mode: req.Mode, PullRequest: res}, nil
	default:
		return nil, apperr.Validation(op, "unknown publish mode %q", req.Mode)
	}
}

// commit fetches the remote handle fresh and then creates or updates the
// file. A missing file is created; any other fetch error aborts.
func (s *publishService) commit(run *publishRun, host githost.Host, req models.CommitRequest, inPullRequest bool) (*models.CommitResult, error) {
	run.to(models.StateFetchingHandle, "path", req.Path, "branch", req.Branch)
	handle, err := host.GetFile(run.ctx, req.Owner, req.Repo, req.Path, req.Branch)
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			return nil, run.fail(err)
		}
		handle = nil
	}

	switch {
	case inPullRequest:
		run.to(models.StateCommitting, "exists", fmt.Sprint(handle.Exists()))
	case handle.Exists():
		run.to(models.StateUpdating, "sha", handle.ContentSHA)
	default:
		run.to(models.StateCreating)
	}

	put := githost.PutFileRequest{
		Owner:   req.Owner,
		Repo:    req.Repo,
		Path:    req.Path,
		Branch:  req.Branch,
		Message: req.Message,
		Content: []byte(req.Content),
	}
	if handle.Exists() {
		put.SHA = handle.ContentSHA
	}
	res, err := host.PutFile(run.ctx, put)
	if err != nil {
		return nil, run.fail(err)
	}
	return res, nil
}

func (s *publishService) authorize(run *publishRun, session models.Session) (githost.Host, error) {
	if session.Provider != models.ProviderGitHub || strings.TrimSpace(session.AccessToken) == "" {
		return nil, run.fail(apperr.Unauthorized(run.op, "a GitHub session is required to publish"))
	}
	if s.hosts == nil {
		return nil, run.fail(apperr.New(apperr.KindInternal, run.op, "no host factory configured"))
	}
	host, err := s.hosts(session.AccessToken)
	if err != nil {
		return nil, run.fail(apperr.Wrap(apperr.KindInternal, run.op, err))
	}
	return host, nil
}

func (s *publishService) withPullRequestDefaults(req models.PullRequestRequest, docType models.DocumentType) models.PullRequestRequest {
	req.CommitRequest = withCommitDefaults(req.CommitRequest)
	if strings.TrimSpace(req.Base) == "" {
		req.Base = models.DefaultBranch
	}
	if strings.TrimSpace(req.Head) == "" {
		req.Head = models.EphemeralBranchName(docType, s.now())
	}
	req.Branch = req.Head
	if strings.TrimSpace(req.Title) == "" {
		req.Title = req.Message
	}
	return req
}

func withCommitDefaults(req models.CommitRequest) models.CommitRequest {
	req.Owner = strings.TrimSpace(req.Owner)
	req.Repo = strings.TrimSpace(req.Repo)
	req.Path = strings.TrimPrefix(strings.TrimSpace(req.Path), "/")
	if strings.TrimSpace(req.Branch) == "" {
		req.Branch = models.DefaultBranch
	}
	return req
}

func validateCommit(op string, req models.CommitRequest) error {
	switch {
	case req.Owner == "" || req.Repo == "":
		return apperr.Validation(op, "repository owner and name are required")
	case req.Path == "":
		return apperr.Validation(op, "file path is required")
	case strings.TrimSpace(req.Content) == "":
		return apperr.Validation(op, "content is empty")
	case strings.TrimSpace(req.Message) == "":
		return apperr.Validation(op, "commit message is required")
	}
	return nil
}

func pullRequestBody(req models.CommitRequest, commit *models.CommitResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "This pull request updates `%s` with generated documentation.\n\n", req.Path)
	fmt.Fprintf(&b, "- Commit: %s\n", commit.SHA)
	if commit.Created {
		b.WriteString("- The file did not exist before and was created.\n")
	} else {
		b.WriteString("- The existing file was replaced.\n")
	}
	b.WriteString("\nPlease review the content before merging.")
	return b.String()
}

// publishRun tracks one publish action's state and reports each transition.
type publishRun struct {
	ctx    context.Context
	op     string
	logger *zap.Logger
	state  models.PublishState
	target string
}

func (s *publishService) start(ctx context.Context, op string, req models.CommitRequest) *publishRun {
	return &publishRun{
		ctx:    ctx,
		op:     op,
		logger: s.logger,
		state:  models.StateIdle,
		target: fmt.Sprintf("%s/%s:%s", req.Owner, req.Repo, req.Path),
	}
}

func (r *publishRun) to(state models.PublishState, kv ...string) {
	from := r.state
	r.state = state
	r.logger.Info("publish state",
		zap.String("op", r.op),
		zap.String("target", r.target),
		zap.String("from", string(from)),
		zap.String("state", string(state)),
	)
	evt := events.NewInfo(string(state))
	if state == models.StateCommitted || state == models.StatePRCreated {
		evt = events.NewSuccess(string(state))
	}
	evt = evt.With("state", string(state), "from", string(from), "op", r.op, "target", r.target)
	events.Emit(r.ctx, events.PublishState, evt.With(kv...))
}

// fail moves to the failed state and returns err unchanged so the host's
// message reaches the caller.
func (r *publishRun) fail(err error) error {
	e := apperr.As(err)
	from := r.state
	r.state = models.StateFailed
	r.logger.Error("publish failed",
		zap.String("op", r.op),
		zap.String("target", r.target),
		zap.String("from", string(from)),
		zap.String("kind", string(e.Kind)),
		zap.Int("status", e.Status),
		zap.Error(err),
	)
	evt := events.NewError(e.Message).With(
		"state", string(models.StateFailed),
		"from", string(from),
		"op", r.op,
		"target", r.target,
		"code", e.Code(),
	)
	events.Emit(r.ctx, events.PublishState, evt)
	return err
}
