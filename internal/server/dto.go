package server

import (
	"docsmith/internal/models"
)

// envelope is the success body shared by every endpoint.
type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

type response[T any] struct {
	Body envelope[T]
}

func ok[T any](data T) *response[T] {
	return &response[T]{Body: envelope[T]{Success: true, Data: data}}
}

type UploadedFile struct {
	Path    string `json:"path" minLength:"1"`
	Content string `json:"content"`
}

type GenerateRequest struct {
	Method  string         `json:"method" enum:"code,github,git,upload" doc:"How data should be interpreted"`
	Data    string         `json:"data,omitempty" doc:"Pasted code, a repository URL, or the upload's project name"`
	Files   []UploadedFile `json:"files,omitempty" doc:"Files for the upload method"`
	DocType string         `json:"docType" doc:"readme, api, guide, contributing or architecture"`
	Title   string         `json:"title,omitempty"`
}

type ReviewRequest struct {
	Content string `json:"content"`
}

type PublishRequest struct {
	Mode    string `json:"mode" enum:"commit,pr"`
	Owner   string `json:"owner"`
	Repo    string `json:"repo"`
	Path    string `json:"path,omitempty" doc:"Defaults to the document type's location"`
	Content string `json:"content"`
	Message string `json:"message"`
	Branch  string `json:"branch,omitempty"`
	Base    string `json:"base,omitempty"`
	Head    string `json:"head,omitempty"`
	Title   string `json:"title,omitempty"`
	Body    string `json:"body,omitempty"`
	DocType string `json:"docType,omitempty"`
}

func (r PublishRequest) toModel() (models.PublishRequest, error) {
	req := models.PublishRequest{
		Mode: models.PublishMode(r.Mode),
		PullRequestRequest: models.PullRequestRequest{
			CommitRequest: models.CommitRequest{
				Owner:   r.Owner,
				Repo:    r.Repo,
				Path:    r.Path,
				Content: r.Content,
				Message: r.Message,
				Branch:  r.Branch,
			},
			Title: r.Title,
			Body:  r.Body,
			Base:  r.Base,
			Head:  r.Head,
		},
	}
	if r.DocType != "" {
		d, err := models.ParseDocumentType(r.DocType)
		if err != nil {
			return req, err
		}
		req.DocType = d
	}
	return req, nil
}

type HealthStatus struct {
	Status string `json:"status"`
}

type DocumentPathInput struct {
	ID string `path:"id"`
}
