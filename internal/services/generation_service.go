package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"docsmith/internal/apperr"
	"docsmith/internal/events"
	"docsmith/internal/llm"
	"docsmith/internal/models"
	"docsmith/internal/prompt"
)

const (
	GenerationTemperature = 0.3
	GenerationMaxTokens   = 4096
)

type GenerationService interface {
	Generate(ctx context.Context, src models.SourceContext, docType models.DocumentType) (*models.GenerationResult, error)
	// GenerateFor also saves the result for session's user. A failed save
	// is logged and the result is still returned.
	GenerateFor(ctx context.Context, session models.Session, src models.SourceContext, docType models.DocumentType, title string) (*models.GenerationResult, error)
}

type GenerationOptions struct {
	Model  string
	Policy llm.Policy
	Logger *zap.Logger
}

type generationService struct {
	completer llm.Completer
	documents DocumentService
	model     string
	policy    llm.Policy
	logger    *zap.Logger
}

// NewGenerationService wires a completer and an optional DocumentService.
func NewGenerationService(completer llm.Completer, documents DocumentService, opts GenerationOptions) GenerationService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := opts.Policy
	if policy.Name == "" {
		policy.Name = "generate"
	}
	if policy.Logger == nil {
		policy.Logger = logger
	}
	return &generationService{
		completer: completer,
		documents: documents,
		model:     opts.Model,
		policy:    policy,
		logger:    logger.Named("generation"),
	}
}

func (s *generationService) Generate(ctx context.Context, src models.SourceContext, docType models.DocumentType) (*models.GenerationResult, error) {
	const op = "generation.Generate"
	if !docType.Valid() {
		return nil, s.fail(ctx, op, apperr.Validation(op, "invalid document type %q", docType))
	}
	p, err := prompt.Build(src, docType)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	started := time.Now()
	events.Emit(ctx, events.PipelineGenerate, events.NewInfo("Generating "+docType.Label()).With("docType", string(docType)))

	req := llm.CompletionRequest{
		SystemPrompt: p.System,
		UserPrompt:   p.User,
		Model:        s.model,
		Temperature:  GenerationTemperature,
		MaxTokens:    GenerationMaxTokens,
	}
	text, err := llm.Execute(ctx, s.policy, func(ctx context.Context) (string, error) {
		out, err := s.completer.Complete(ctx, req)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(out) == "" {
			return "", apperr.New(apperr.KindEmptyGeneration, op, "model returned no documentation")
		}
		return out, nil
	})
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	s.logger.Info("documentation generated",
		zap.String("docType", string(docType)),
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", time.Since(started)),
	)
	events.Emit(ctx, events.PipelineGenerate, events.NewSuccess("Generated "+docType.Label()).With("docType", string(docType)))
	return &models.GenerationResult{DocumentText: text}, nil
}

func (s *generationService) GenerateFor(ctx context.Context, session models.Session, src models.SourceContext, docType models.DocumentType, title string) (*models.GenerationResult, error) {
	res, err := s.Generate(ctx, src, docType)
	if err != nil {
		return nil, err
	}
	if s.documents == nil || session.UserID == "" {
		return res, nil
	}

	id, err := s.documents.Save(ctx, models.SaveDocumentInput{
		UserID:         session.UserID,
		Title:          title,
		Content:        res.DocumentText,
		DocType:        docType,
		RepositoryURL:  src.RepositoryURL(),
		RepositoryName: src.RepositoryName(),
	})
	if err != nil {
		s.logger.Warn("saving generated document failed", zap.String("user", session.UserID), zap.Error(err))
		events.Emit(ctx, events.PipelineGenerate, events.NewWarn("Generated document was not saved"))
		return res, nil
	}
	res.DocumentID = id
	return res, nil
}

func (s *generationService) fail(ctx context.Context, op string, err error) error {
	e := apperr.As(err)
	s.logger.Error("generation failed", zap.String("op", op), zap.String("kind", string(e.Kind)), zap.Error(err))
	events.Emit(ctx, events.PipelineGenerate, events.NewError(e.Message).With("code", e.Code()))
	return err
}
