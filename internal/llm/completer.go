// Package llm holds the provider-neutral completion contract, the classified
// retry policy and the process-wide default client handle.
package llm

import "context"

// CompletionRequest is one chat-style completion call.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Model        string
	Temperature  float32
	MaxTokens    int
}

// Completer performs exactly one completion call. Implementations return a
// classified *apperr.Error so the retry policy can decide what to do.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req CompletionRequest) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}
