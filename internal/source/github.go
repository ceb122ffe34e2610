package source

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docsmith/internal/apperr"
	"docsmith/internal/githost"
	"docsmith/internal/models"
)

// fetchConcurrency bounds parallel file reads for one repository.
const fetchConcurrency = 4

// ReaderFactory returns a repository reader for token. token may be empty
// for public repositories.
type ReaderFactory func(token string) (githost.RepositoryReader, error)

type GitHubFetcher struct {
	readers  ReaderFactory
	logger   *zap.Logger
	MaxFiles int
}

func NewGitHubFetcher(readers ReaderFactory, logger *zap.Logger) *GitHubFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitHubFetcher{readers: readers, logger: logger.Named("github-fetch"), MaxFiles: MaxFiles}
}

// Fetch builds a descriptor from the repository metadata, its recursive
// tree and a bounded selection of file contents.
func (f *GitHubFetcher) Fetch(ctx context.Context, token, owner, name string) (*models.RepositoryDescriptor, error) {
	const op = "source.GitHubFetch"
	reader, err := f.readers(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, err)
	}

	info, err := reader.GetRepository(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	ref := info.DefaultBranch
	if ref == "" {
		ref = models.DefaultBranch
	}
	entries, err := reader.ListTree(ctx, owner, name, ref)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(entries))
	readable := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
		if e.Size <= MaxFileSize {
			readable = append(readable, e.Path)
		}
	}
	selected := SelectFiles(readable, f.MaxFiles)

	files := make([]models.SourceFile, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, p := range selected {
		i, p := i, p
		g.Go(func() error {
			content, err := reader.ReadFile(gctx, owner, name, p, ref)
			if err != nil {
				if apperr.Is(err, apperr.KindNotFound) {
					f.logger.Debug("file vanished while fetching", zap.String("path", p))
					return nil
				}
				return err
			}
			if looksBinary([]byte(content)) {
				return nil
			}
			files[i] = models.SourceFile{Path: p, Content: content}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	repoOwner, repoName := info.Owner, info.Name
	if repoOwner == "" {
		repoOwner = owner
	}
	if repoName == "" {
		repoName = name
	}
	desc := assemble(&models.RepositoryDescriptor{
		Owner:           repoOwner,
		Name:            repoName,
		Description:     info.Description,
		PrimaryLanguage: info.Language,
		URL:             info.HTMLURL,
	}, paths, files)
	if len(desc.Files) == 0 {
		return nil, apperr.Validation(op, "no readable source files in %s/%s", owner, name)
	}
	f.logger.Info("repository fetched",
		zap.String("repo", fmt.Sprintf("%s/%s", owner, name)),
		zap.Int("tree", len(paths)),
		zap.Int("files", len(desc.Files)))
	return desc, nil
}
