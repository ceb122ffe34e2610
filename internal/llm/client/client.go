// Package client adapts eino chat models (OpenAI, Anthropic, Gemini) to the
// llm.Completer contract.
package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"docsmith/internal/apperr"
	"docsmith/internal/llm"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

const opComplete = "llm.complete"

// ChatModel is the part of eino's model.BaseChatModel the client needs.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// LLMClient sends single system+user completions through an eino chat model.
type LLMClient struct {
	chat     ChatModel
	provider string
	model    string
	logger   *zap.Logger
}

var _ llm.Completer = (*LLMClient)(nil)

// New wraps an already constructed chat model.
func New(chat ChatModel, provider, modelName string, logger *zap.Logger) *LLMClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMClient{chat: chat, provider: provider, model: modelName, logger: logger}
}

func (c *LLMClient) Provider() string { return c.provider }
func (c *LLMClient) Model() string    { return c.model }

// Complete performs one call. Blank output is an empty-generation error so the
// retry policy treats it as transient.
func (c *LLMClient) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	messages := make([]*schema.Message, 0, 2)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, schema.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, schema.UserMessage(req.UserPrompt))

	opts := []model.Option{model.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	if m := strings.TrimSpace(req.Model); m != "" && m != c.model {
		opts = append(opts, model.WithModel(m))
	}

	started := time.Now()
	msg, err := c.chat.Generate(ctx, messages, opts...)
	if err != nil {
		classified := ClassifyError(err)
		c.logger.Warn("completion failed",
			zap.String("provider", c.provider),
			zap.String("model", c.model),
			zap.String("kind", string(classified.Kind)),
			zap.Error(err))
		return "", classified
	}

	text := ""
	if msg != nil {
		text = msg.Content
	}
	if strings.TrimSpace(text) == "" {
		return "", apperr.New(apperr.KindEmptyGeneration, opComplete, "model returned an empty response")
	}
	c.logger.Debug("completion finished",
		zap.String("provider", c.provider),
		zap.String("model", c.model),
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", time.Since(started)))
	return text, nil
}

// Options selects the provider model and connection settings.
type Options struct {
	Model     string
	BaseURL   string
	Timeout   time.Duration
	MaxTokens int
}

func NewOpenAIClient(ctx context.Context, apiKey string, opts Options, logger *zap.Logger) (*LLMClient, error) {
	cfg := &openai.ChatModelConfig{
		APIKey:  apiKey,
		Model:   opts.Model,
		BaseURL: opts.BaseURL,
		Timeout: opts.Timeout,
	}
	if opts.MaxTokens > 0 {
		cfg.MaxTokens = &opts.MaxTokens
	}
	chat, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, configError("openai chat model", err)
	}
	return New(chat, ProviderOpenAI, opts.Model, logger), nil
}

func NewClaudeClient(ctx context.Context, apiKey string, opts Options, logger *zap.Logger) (*LLMClient, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	cfg := &claude.Config{
		APIKey:    apiKey,
		Model:     opts.Model,
		MaxTokens: maxTokens,
	}
	if opts.BaseURL != "" {
		cfg.BaseURL = &opts.BaseURL
	}
	chat, err := claude.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, configError("claude chat model", err)
	}
	return New(chat, ProviderAnthropic, opts.Model, logger), nil
}

func NewGeminiClient(ctx context.Context, apiKey string, opts Options, logger *zap.Logger) (*LLMClient, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, configError("genai client", err)
	}
	cfg := &gemini.Config{
		Client: gc,
		Model:  opts.Model,
	}
	if opts.MaxTokens > 0 {
		cfg.MaxTokens = &opts.MaxTokens
	}
	chat, err := gemini.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, configError("gemini chat model", err)
	}
	return New(chat, ProviderGemini, opts.Model, logger), nil
}

// configError marks a client construction failure as a configuration
// problem so the retry policy does not repeat it.
func configError(what string, err error) error {
	return &apperr.Error{
		Kind:    apperr.KindValidation,
		Op:      "llm.client",
		Message: fmt.Sprintf("create %s: %v", what, err),
		Err:     err,
	}
}

// NewForProvider picks the constructor for providerID.
func NewForProvider(ctx context.Context, providerID, apiKey string, opts Options, logger *zap.Logger) (*LLMClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, apperr.New(apperr.KindAuthentication, "llm.client", fmt.Sprintf("API key for %s is not configured", providerID))
	}
	switch strings.TrimSpace(providerID) {
	case ProviderAnthropic:
		return NewClaudeClient(ctx, apiKey, opts, logger)
	case ProviderOpenAI:
		return NewOpenAIClient(ctx, apiKey, opts, logger)
	case ProviderGemini:
		return NewGeminiClient(ctx, apiKey, opts, logger)
	default:
		return nil, apperr.Validation("llm.client", "unsupported provider: %s", providerID)
	}
}
