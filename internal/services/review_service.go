package services

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"docsmith/internal/apperr"
	"docsmith/internal/events"
	"docsmith/internal/llm"
	"docsmith/internal/llm/recovery"
	"docsmith/internal/models"
	"docsmith/internal/prompt"
)

const (
	ReviewTemperature = 0
	ReviewMaxTokens   = 2048
)

type ReviewService interface {
	Review(ctx context.Context, documentText string) (*models.ReviewResult, error)
}

type reviewService struct {
	completer llm.Completer
	model     string
	policy    llm.Policy
	logger    *zap.Logger
}

func NewReviewService(completer llm.Completer, opts GenerationOptions) ReviewService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := opts.Policy
	if policy.Name == "" {
		policy.Name = "review"
	}
	if policy.Logger == nil {
		policy.Logger = logger
	}
	return &reviewService{
		completer: completer,
		model:     opts.Model,
		policy:    policy,
		logger:    logger.Named("review"),
	}
}

// Review critiques documentText. A response that cannot be recovered into
// a ReviewResult fails with a malformed-response error and is not retried.
func (s *reviewService) Review(ctx context.Context, documentText string) (*models.ReviewResult, error) {
	const op = "review.Review"
	if strings.TrimSpace(documentText) == "" {
		return nil, s.fail(ctx, op, apperr.Validation(op, "document content is empty"))
	}
	system, err := prompt.ReviewerPrompt()
	if err != nil {
		return nil, s.fail(ctx, op, apperr.Wrap(apperr.KindInternal, op, err))
	}

	events.Emit(ctx, events.PipelineReview, events.NewInfo("Reviewing documentation"))
	req := llm.CompletionRequest{
		SystemPrompt: system,
		UserPrompt:   "Review the following documentation.\n\n" + documentText,
		Model:        s.model,
		Temperature:  ReviewTemperature,
		MaxTokens:    ReviewMaxTokens,
	}
	raw, err := llm.Execute(ctx, s.policy, func(ctx context.Context) (string, error) {
		return s.completer.Complete(ctx, req)
	})
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	result, err := recovery.Parse(raw)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	s.logger.Info("review parsed", zap.Int("score", result.Score), zap.Int("improvements", len(result.Improvements)))
	events.Emit(ctx, events.PipelineReview, events.NewSuccess("Review complete").With("score", strconv.Itoa(result.Score)))
	return result, nil
}

func (s *reviewService) fail(ctx context.Context, op string, err error) error {
	e := apperr.As(err)
	fields := []zap.Field{zap.String("op", op), zap.String("kind", string(e.Kind)), zap.Error(err)}
	if e.Preview != "" {
		fields = append(fields, zap.String("preview", e.Preview))
	}
	s.logger.Error("review failed", fields...)
	events.Emit(ctx, events.PipelineReview, events.NewError(e.Message).With("code", e.Code()))
	return err
}
