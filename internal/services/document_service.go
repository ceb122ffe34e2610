package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"docsmith/internal/apperr"
	"docsmith/internal/models"
	"docsmith/internal/repositories"
)

// DocumentService persists generated documents and their history.
type DocumentService interface {
	Save(ctx context.Context, in models.SaveDocumentInput) (string, error)
	AddVersion(ctx context.Context, id, content string) (*models.DocumentVersion, error)
	Get(ctx context.Context, userID, id string) (*models.Document, error)
	List(ctx context.Context, userID string) ([]*models.Document, error)
	Versions(ctx context.Context, userID, id string) ([]*models.DocumentVersion, error)
}

type documentService struct {
	repo repositories.DocumentRepository
}

func NewDocumentService(repo repositories.DocumentRepository) DocumentService {
	return &documentService{repo: repo}
}

func (s *documentService) Save(ctx context.Context, in models.SaveDocumentInput) (string, error) {
	const op = "documents.Save"
	if strings.TrimSpace(in.UserID) == "" {
		return "", apperr.Validation(op, "user id is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return "", apperr.Validation(op, "content is empty")
	}
	if !in.DocType.Valid() {
		return "", apperr.Validation(op, "invalid document type %q", in.DocType)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = defaultTitle(in)
	}

	doc := &models.Document{
		ID:             uuid.NewString(),
		UserID:         in.UserID,
		Title:          title,
		Content:        in.Content,
		DocType:        in.DocType,
		RepositoryURL:  in.RepositoryURL,
		RepositoryName: in.RepositoryName,
		Version:        1,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return "", fmt.Errorf("service: save document: %w", err)
	}
	return doc.ID, nil
}

func (s *documentService) AddVersion(ctx context.Context, id, content string) (*models.DocumentVersion, error) {
	const op = "documents.AddVersion"
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Validation(op, "content is empty")
	}
	v, err := s.repo.AddVersion(ctx, id, content)
	if err != nil {
		return nil, notFoundOr(op, id, err)
	}
	return v, nil
}

// Get only returns documents owned by userID.
func (s *documentService) Get(ctx context.Context, userID, id string) (*models.Document, error) {
	const op = "documents.Get"
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, notFoundOr(op, id, err)
	}
	if doc.UserID != userID {
		return nil, apperr.NotFound(op, "document %s not found", id)
	}
	return doc, nil
}

func (s *documentService) List(ctx context.Context, userID string) ([]*models.Document, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: list documents: %w", err)
	}
	return list, nil
}

func (s *documentService) Versions(ctx context.Context, userID, id string) ([]*models.DocumentVersion, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	list, err := s.repo.ListVersions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: list versions of %s: %w", id, err)
	}
	return list, nil
}

func notFoundOr(op, id string, err error) error {
	if errors.Is(err, repositories.ErrDocumentNotFound) {
		return apperr.NotFound(op, "document %s not found", id)
	}
	return fmt.Errorf("service: %s %s: %w", op, id, err)
}

func defaultTitle(in models.SaveDocumentInput) string {
	if in.RepositoryName != "" {
		return fmt.Sprintf("%s %s", in.RepositoryName, in.DocType.Label())
	}
	return in.DocType.Label()
}
