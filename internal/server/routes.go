package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"docsmith/internal/apperr"
	"docsmith/internal/models"
	"docsmith/internal/services"
	"docsmith/internal/source"
)

type handlers struct {
	services *services.Services
	sources  *source.Resolver
	logger   *zap.Logger
}

var pipelineErrors = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*response[HealthStatus], error) {
		return ok(HealthStatus{Status: "ok"}), nil
	})
}

func (h *handlers) registerPipeline(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "generate",
		Method:      http.MethodPost,
		Path:        "/generate",
		Summary:     "Generate documentation from code, a repository or uploaded files",
		Errors:      append([]int{http.StatusNotFound}, pipelineErrors...),
	}, func(ctx context.Context, input *struct {
		Body GenerateRequest
	}) (*response[*models.GenerationResult], error) {
		const op = "server.Generate"
		docType, err := models.ParseDocumentType(input.Body.DocType)
		if err != nil {
			return nil, h.handleError(op, apperr.Validation(op, "%s", err.Error()))
		}
		method, err := source.ParseMethod(input.Body.Method)
		if err != nil {
			return nil, h.handleError(op, err)
		}
		if h.sources == nil {
			return nil, h.handleError(op, apperr.New(apperr.KindInternal, op, "source ingestion is not configured"))
		}

		session := sessionFromContext(ctx)
		token := ""
		if session.Provider == models.ProviderGitHub {
			token = session.AccessToken
		}
		files := make([]models.SourceFile, 0, len(input.Body.Files))
		for _, f := range input.Body.Files {
			files = append(files, models.SourceFile{Path: f.Path, Content: f.Content})
		}
		src, err := h.sources.Resolve(ctx, source.Request{Method: method, Data: input.Body.Data, Files: files}, token)
		if err != nil {
			return nil, h.handleError(op, err)
		}

		res, err := h.services.Generation.GenerateFor(ctx, session, src, docType, input.Body.Title)
		if err != nil {
			return nil, h.handleError(op, err)
		}
		return ok(res), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "review",
		Method:      http.MethodPost,
		Path:        "/review",
		Summary:     "Review generated documentation",
		Errors:      pipelineErrors,
	}, func(ctx context.Context, input *struct {
		Body ReviewRequest
	}) (*response[*models.ReviewResult], error) {
		res, err := h.services.Review.Review(ctx, input.Body.Content)
		if err != nil {
			return nil, h.handleError("server.Review", err)
		}
		return ok(res), nil
	})
}

func (h *handlers) registerPublish(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "publish",
		Method:      http.MethodPost,
		Path:        "/publish",
		Summary:     "Commit documentation or open a pull request",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
			http.StatusBadGateway,
		},
	}, func(ctx context.Context, input *struct {
		Body PublishRequest
	}) (*response[*models.PublishResult], error) {
		const op = "server.Publish"
		req, err := input.Body.toModel()
		if err != nil {
			return nil, h.handleError(op, apperr.Validation(op, "%s", err.Error()))
		}
		res, err := h.services.Publish.Publish(ctx, sessionFromContext(ctx), req)
		if err != nil {
			return nil, h.handleError(op, err)
		}
		return ok(res), nil
	})
}

func (h *handlers) registerModels(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-models",
		Method:      http.MethodGet,
		Path:        "/models",
		Summary:     "List completion models grouped by provider",
	}, func(ctx context.Context, _ *struct{}) (*response[[]models.LLMModelGroup], error) {
		groups, err := h.services.Models.ListModelGroups()
		if err != nil {
			return nil, h.handleError("server.ListModels", err)
		}
		return ok(groups), nil
	})
}

func (h *handlers) registerDocuments(api huma.API) {
	docErrors := []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError}

	huma.Register(api, huma.Operation{
		OperationID: "list-documents",
		Method:      http.MethodGet,
		Path:        "/documents",
		Summary:     "List the caller's saved documents",
		Errors:      docErrors,
	}, func(ctx context.Context, _ *struct{}) (*response[[]*models.Document], error) {
		const op = "server.ListDocuments"
		docs, session, err := h.documents(ctx, op)
		if err != nil {
			return nil, h.handleError(op, err)
		}
		list, err := docs.List(ctx, session.UserID)
		if err != nil {
			return nil, h.handleError(op, err)
		}
		if list == nil {
			list = []*models.Document{}
		}
		return ok(list), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-document",
		Method:      http.MethodGet,
		Path:        "/documents/{id}",
		Summary:     "Get a saved document",
		Errors:      docErrors,
	}, func(ctx context.Context, input *DocumentPathInput) (*response[*models.Document], error) {
		const op = "server.GetDocument"
		docs, session, err := h.documents(ctx, op)
		if err != nil {
			return nil, h.handleError(op, err)
		}
		doc, err := docs.Get(ctx, session.UserID, input.ID)
		if err != nil {
			return nil, h.handleError(op, err)
		}
		return ok(doc), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-document-versions",
		Method:      http.MethodGet,
		Path:        "/documents/{id}/versions",
		Summary:     "List a document's version history",
		Errors:      docErrors,
	}, func(ctx context.Context, input *DocumentPathInput) (*response[[]*models.DocumentVersion], error) {
		const op = "server.ListDocumentVersions"
		docs, session, err := h.documents(ctx, op)
		if err != nil {
			return nil, h.handleError(op, err)
		}
		versions, err := docs.Versions(ctx, session.UserID, input.ID)
		if err != nil {
			return nil, h.handleError(op, err)
		}
		if versions == nil {
			versions = []*models.DocumentVersion{}
		}
		return ok(versions), nil
	})
}

// documents requires an authenticated caller and configured storage.
func (h *handlers) documents(ctx context.Context, op string) (services.DocumentService, models.Session, error) {
	session, err := requireUser(ctx, op)
	if err != nil {
		return nil, session, err
	}
	if h.services.Documents == nil {
		return nil, session, apperr.New(apperr.KindInternal, op, "document storage is not configured")
	}
	return h.services.Documents, session, nil
}
