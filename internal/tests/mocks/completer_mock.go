package mocks

import (
	"context"
	"sync"

	"docsmith/internal/llm"
)

// CompleterMock records every request it receives.
type CompleterMock struct {
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (string, error)

	mu       sync.Mutex
	Requests []llm.CompletionRequest
}

func (m *CompleterMock) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return "", nil
}

func (m *CompleterMock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// Sequence returns a CompleteFunc that yields each step in order and keeps
// returning the last one.
func Sequence(steps ...func() (string, error)) func(ctx context.Context, req llm.CompletionRequest) (string, error) {
	var mu sync.Mutex
	i := 0
	return func(ctx context.Context, req llm.CompletionRequest) (string, error) {
		mu.Lock()
		step := steps[i]
		if i < len(steps)-1 {
			i++
		}
		mu.Unlock()
		return step()
	}
}
