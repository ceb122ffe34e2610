package source

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
	"go.uber.org/zap"

	"docsmith/internal/apperr"
	"docsmith/internal/models"
)

// CloneFetcher ingests repositories on any git host with a shallow,
// in-memory clone. Nothing is written to disk.
type CloneFetcher struct {
	logger   *zap.Logger
	MaxFiles int
}

func NewCloneFetcher(logger *zap.Logger) *CloneFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloneFetcher{logger: logger.Named("clone-fetch"), MaxFiles: MaxFiles}
}

// Fetch clones rawURL at its default branch. token, when set, is sent as
// HTTP basic auth.
func (c *CloneFetcher) Fetch(ctx context.Context, rawURL, token string) (*models.RepositoryDescriptor, error) {
	const op = "source.CloneFetch"
	ref, err := ParseRepositoryURL(rawURL)
	if err != nil {
		return nil, err
	}
	cloneURL := strings.TrimSpace(rawURL)
	if !strings.Contains(cloneURL, "://") && !strings.Contains(cloneURL, "@") {
		cloneURL = ref.CloneURL()
	}

	opts := &git.CloneOptions{
		URL:          cloneURL,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if token != "" {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: token}
	}
	repo, err := git.CloneContext(ctx, memory.NewStorage(), nil, opts)
	if err != nil {
		return nil, classifyCloneError(op, err)
	}
	desc, err := c.FromRepository(repo, ref)
	if err != nil {
		return nil, err
	}
	desc.URL = strings.TrimSuffix(ref.CloneURL(), ".git")
	c.logger.Info("repository cloned", zap.String("repo", ref.FullName()), zap.Int("files", len(desc.Files)))
	return desc, nil
}

// FromRepository reads the HEAD tree of an opened repository.
func (c *CloneFetcher) FromRepository(repo *git.Repository, ref RepositoryRef) (*models.RepositoryDescriptor, error) {
	const op = "source.CloneFetch"
	head, err := repo.Head()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, op, err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, err)
	}

	var paths, readable []string
	err = tree.Files().ForEach(func(f *object.File) error {
		paths = append(paths, f.Name)
		if f.Size <= MaxFileSize {
			readable = append(readable, f.Name)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, err)
	}

	var files []models.SourceFile
	for _, p := range SelectFiles(readable, c.MaxFiles) {
		f, err := tree.File(p)
		if err != nil {
			continue
		}
		content, err := readBlob(f)
		if err != nil || looksBinary(content) {
			continue
		}
		files = append(files, models.SourceFile{Path: p, Content: string(content)})
	}

	desc := assemble(&models.RepositoryDescriptor{Owner: ref.Owner, Name: ref.Name}, paths, files)
	if len(desc.Files) == 0 {
		return nil, apperr.Validation(op, "no readable source files in %s", ref.FullName())
	}
	return desc, nil
}

func readBlob(f *object.File) ([]byte, error) {
	r, err := f.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(io.LimitReader(r, MaxFileSize))
}

func classifyCloneError(op string, err error) error {
	switch {
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return apperr.Wrap(apperr.KindNotFound, op, err)
	case errors.Is(err, transport.ErrAuthenticationRequired), errors.Is(err, transport.ErrAuthorizationFailed):
		return apperr.Wrap(apperr.KindAuthentication, op, err)
	case errors.Is(err, transport.ErrEmptyRemoteRepository):
		return apperr.Wrap(apperr.KindValidation, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.KindInternal, op, err)
	default:
		return apperr.Wrap(apperr.KindRemoteHost, op, err)
	}
}
