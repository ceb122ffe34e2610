package services

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"docsmith/internal/llm"
	"docsmith/internal/repositories"
)

// Services aggregates the pipeline and persistence services.
type Services struct {
	Documents  DocumentService
	Generation GenerationService
	Review     ReviewService
	Publish    PublishService
	Models     ModelCatalogService
}

// Deps are the collaborators NewServices wires together. DB may be nil, in
// which case generated documents are not saved.
type Deps struct {
	DB        *gorm.DB
	Completer llm.Completer
	Hosts     HostFactory
	Available ProviderAvailability
	Model     string
	Policy    llm.Policy
	Logger    *zap.Logger
}

// NewServices constructs the service container.
func NewServices(deps Deps) (*Services, error) {
	var documents DocumentService
	if deps.DB != nil {
		documents = NewDocumentService(repositories.NewDocumentRepository(deps.DB))
	}
	catalog, err := NewModelCatalogService(deps.Available)
	if err != nil {
		return nil, err
	}

	opts := GenerationOptions{Model: deps.Model, Policy: deps.Policy, Logger: deps.Logger}
	return &Services{
		Documents:  documents,
		Generation: NewGenerationService(deps.Completer, documents, opts),
		Review:     NewReviewService(deps.Completer, opts),
		Publish:    NewPublishService(deps.Hosts, PublishOptions{Logger: deps.Logger}),
		Models:     catalog,
	}, nil
}
