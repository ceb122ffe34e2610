package models

import "time"

// Document is a saved generation owned by a user.
type Document struct {
	ID             string       `gorm:"primaryKey;size:36" json:"id"`
	UserID         string       `gorm:"size:255;not null;index" json:"userId"`
	Title          string       `gorm:"size:255;not null" json:"title"`
	Content        string       `gorm:"type:text;not null" json:"content"`
	DocType        DocumentType `gorm:"size:32;not null" json:"docType"`
	RepositoryURL  string       `gorm:"size:512" json:"repositoryUrl,omitempty"`
	RepositoryName string       `gorm:"size:255" json:"repositoryName,omitempty"`
	Version        int          `gorm:"not null;default:1" json:"version"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// DocumentVersion is an immutable snapshot of a document's content.
type DocumentVersion struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID string    `gorm:"size:36;not null;uniqueIndex:idx_document_version" json:"documentId"`
	Version    int       `gorm:"not null;uniqueIndex:idx_document_version" json:"version"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SaveDocumentInput is the payload accepted by the persistence collaborator.
type SaveDocumentInput struct {
	UserID         string       `json:"userId"`
	Title          string       `json:"title"`
	Content        string       `json:"content"`
	DocType        DocumentType `json:"docType"`
	RepositoryURL  string       `json:"repositoryUrl,omitempty"`
	RepositoryName string       `json:"repositoryName,omitempty"`
}
