package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docsmith/internal/models"
)

// ErrDocumentNotFound is returned when a document id has no row.
var ErrDocumentNotFound = errors.New("document not found")

type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, id string) (*models.Document, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Document, error)
	AddVersion(ctx context.Context, id, content string) (*models.DocumentVersion, error)
	ListVersions(ctx context.Context, id string) ([]*models.DocumentVersion, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create stores doc and its first version in one transaction.
func (r *documentRepository) Create(ctx context.Context, doc *models.Document) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if doc.Version == 0 {
			doc.Version = 1
		}
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		return tx.Create(&models.DocumentVersion{
			DocumentID: doc.ID,
			Version:    doc.Version,
			Content:    doc.Content,
		}).Error
	})
	if err != nil {
		return fmt.Errorf("creating document: %w", err)
	}
	return nil
}

func (r *documentRepository) Get(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document %s: %w", id, ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("getting document %s: %w", id, err)
	}
	return &doc, nil
}

func (r *documentRepository) ListByUser(ctx context.Context, userID string) ([]*models.Document, error) {
	var list []*models.Document
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("listing documents for %s: %w", userID, err)
	}
	return list, nil
}

// AddVersion bumps the document's version and replaces its content.
func (r *documentRepository) AddVersion(ctx context.Context, id, content string) (*models.DocumentVersion, error) {
	var version models.DocumentVersion
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc models.Document
		if err := tx.First(&doc, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDocumentNotFound
			}
			return err
		}
		doc.Version++
		doc.Content = content
		if err := tx.Save(&doc).Error; err != nil {
			return err
		}
		version = models.DocumentVersion{
			DocumentID: doc.ID,
			Version:    doc.Version,
			Content:    content,
		}
		return tx.Create(&version).Error
	})
	if err != nil {
		return nil, fmt.Errorf("adding version to document %s: %w", id, err)
	}
	return &version, nil
}

func (r *documentRepository) ListVersions(ctx context.Context, id string) ([]*models.DocumentVersion, error) {
	var list []*models.DocumentVersion
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", id).
		Order("version ASC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("listing versions of document %s: %w", id, err)
	}
	return list, nil
}
