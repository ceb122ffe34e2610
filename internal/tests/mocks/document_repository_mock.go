package mocks

import (
	"context"

	"docsmith/internal/models"
)

type DocumentRepositoryMock struct {
	CreateFunc       func(ctx context.Context, doc *models.Document) error
	GetFunc          func(ctx context.Context, id string) (*models.Document, error)
	ListByUserFunc   func(ctx context.Context, userID string) ([]*models.Document, error)
	AddVersionFunc   func(ctx context.Context, id, content string) (*models.DocumentVersion, error)
	ListVersionsFunc func(ctx context.Context, id string) ([]*models.DocumentVersion, error)
}

func (m *DocumentRepositoryMock) Create(ctx context.Context, doc *models.Document) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, doc)
	}
	return nil
}

func (m *DocumentRepositoryMock) Get(ctx context.Context, id string) (*models.Document, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, nil
}

func (m *DocumentRepositoryMock) ListByUser(ctx context.Context, userID string) ([]*models.Document, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return []*models.Document{}, nil
}

func (m *DocumentRepositoryMock) AddVersion(ctx context.Context, id, content string) (*models.DocumentVersion, error) {
	if m.AddVersionFunc != nil {
		return m.AddVersionFunc(ctx, id, content)
	}
	return nil, nil
}

func (m *DocumentRepositoryMock) ListVersions(ctx context.Context, id string) ([]*models.DocumentVersion, error) {
	if m.ListVersionsFunc != nil {
		return m.ListVersionsFunc(ctx, id)
	}
	return []*models.DocumentVersion{}, nil
}
