package client

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"docsmith/internal/apperr"
	"docsmith/internal/llm"
)

type fakeChatModel struct {
	reply    *schema.Message
	err      error
	received []*schema.Message
	opts     *model.Options
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.received = input
	f.opts = model.GetCommonOptions(nil, opts...)
	return f.reply, f.err
}

func TestComplete_SendsSystemAndUserMessages(t *testing.T) {
	fake := &fakeChatModel{reply: schema.AssistantMessage("# Title", nil)}
	c := New(fake, ProviderOpenAI, "gpt-test", nil)

	out, err := c.Complete(context.Background(), llm.CompletionRequest{
		SystemPrompt: "be brief",
		UserPrompt:   "document this",
		Temperature:  0.3,
		MaxTokens:    4096,
	})
	require.NoError(t, err)
	assert.Equal(t, "# Title", out)

	require.Len(t, fake.received, 2)
	assert.Equal(t, schema.System, fake.received[0].Role)
	assert.Equal(t, "be brief", fake.received[0].Content)
	assert.Equal(t, schema.User, fake.received[1].Role)

	require.NotNil(t, fake.opts.Temperature)
	assert.InDelta(t, 0.3, *fake.opts.Temperature, 0.0001)
	require.NotNil(t, fake.opts.MaxTokens)
	assert.Equal(t, 4096, *fake.opts.MaxTokens)
}

func TestComplete_BlankOutputIsEmptyGeneration(t *testing.T) {
	for _, reply := range []*schema.Message{nil, schema.AssistantMessage("  \n\t", nil)} {
		c := New(&fakeChatModel{reply: reply}, ProviderGemini, "gemini-test", nil)
		_, err := c.Complete(context.Background(), llm.CompletionRequest{UserPrompt: "x"})
		require.Error(t, err)
		assert.Equal(t, apperr.KindEmptyGeneration, apperr.KindOf(err))
		assert.True(t, apperr.IsRetriable(err))
	}
}

func TestComplete_ClassifiesProviderErrors(t *testing.T) {
	c := New(&fakeChatModel{err: errors.New("error, status code: 429, message: Rate limit reached")}, ProviderOpenAI, "m", nil)
	_, err := c.Complete(context.Background(), llm.CompletionRequest{UserPrompt: "x"})
	assert.Equal(t, apperr.KindRateLimit, apperr.KindOf(err))
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		want apperr.Kind
	}{
		{errors.New("error, status code: 400, message: This model's maximum context length is 128000 tokens"), apperr.KindContextTooLarge},
		{errors.New(`POST "https://api.anthropic.com/v1/messages": 400 Bad Request {"message":"prompt is too long"}`), apperr.KindContextTooLarge},
		{errors.New(`POST "https://api.anthropic.com/v1/messages": 401 Unauthorized {"type":"authentication_error"}`), apperr.KindAuthentication},
		{errors.New("Incorrect API key provided"), apperr.KindAuthentication},
		{errors.New("error, status code: 429, message: slow down"), apperr.KindRateLimit},
		{errors.New("error, status code: 400, message: invalid_request_error"), apperr.KindValidation},
		{errors.New("dial tcp: connection refused"), apperr.KindInternal},
		{genai.APIError{Code: 429, Message: "Resource has been exhausted", Status: "RESOURCE_EXHAUSTED"}, apperr.KindRateLimit},
		{fmt.Errorf("generate: %w", genai.APIError{Code: 403, Message: "denied", Status: "PERMISSION_DENIED"}), apperr.KindAuthentication},
		{apperr.Validation("op", "already classified"), apperr.KindValidation},
	}
	for _, tc := range cases {
		got := ClassifyError(tc.err)
		require.NotNil(t, got)
		assert.Equal(t, tc.want, got.Kind, tc.err.Error())
	}
	assert.Nil(t, ClassifyError(nil))
}

func TestNewForProvider_Validation(t *testing.T) {
	_, err := NewForProvider(context.Background(), ProviderOpenAI, "", Options{Model: "m"}, nil)
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err))

	_, err = NewForProvider(context.Background(), "mistral", "key", Options{Model: "m"}, nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestConfigError_IsNotRetried(t *testing.T) {
	cause := errors.New("parse base url: missing scheme")
	var builds int
	h := llm.NewHandle(func(ctx context.Context) (llm.Completer, error) {
		builds++
		return nil, configError("openai chat model", cause)
	})
	policy := llm.Policy{InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, MaxRetries: 3, Name: "test"}

	_, err := llm.Execute(context.Background(), policy, func(ctx context.Context) (string, error) {
		return h.Complete(ctx, llm.CompletionRequest{UserPrompt: "hi"})
	})
	require.Error(t, err)
	assert.Equal(t, 1, builds)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.False(t, apperr.IsRetriable(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "create openai chat model")
}
