package llm

import (
	"context"
	"errors"
	"sync"
)

// Factory builds a Completer. It runs at most once per reset.
type Factory func(ctx context.Context) (Completer, error)

var ErrNoFactory = errors.New("llm: no completer factory configured")

// Handle lazily builds a Completer from its factory and reuses it until Reset.
// A failed build is not cached; the next Get tries again.
type Handle struct {
	mu      sync.Mutex
	factory Factory
	current Completer
}

func NewHandle(factory Factory) *Handle {
	return &Handle{factory: factory}
}

func (h *Handle) Get(ctx context.Context) (Completer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current != nil {
		return h.current, nil
	}
	if h.factory == nil {
		return nil, ErrNoFactory
	}
	c, err := h.factory(ctx)
	if err != nil {
		return nil, err
	}
	h.current = c
	return c, nil
}

// Complete lets a Handle stand in wherever a Completer is expected.
func (h *Handle) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	c, err := h.Get(ctx)
	if err != nil {
		return "", err
	}
	return c.Complete(ctx, req)
}

// Reset drops the cached Completer so the next Get rebuilds it.
func (h *Handle) Reset() {
	h.mu.Lock()
	h.current = nil
	h.mu.Unlock()
}

// SetFactory replaces the factory and drops the cached Completer.
func (h *Handle) SetFactory(f Factory) {
	h.mu.Lock()
	h.factory = f
	h.current = nil
	h.mu.Unlock()
}

// Inject installs c directly, bypassing the factory until the next reset.
func (h *Handle) Inject(c Completer) {
	h.mu.Lock()
	h.current = c
	h.mu.Unlock()
}

var defaultHandle = &Handle{}

// Default returns the process-wide handle.
func Default() *Handle { return defaultHandle }

// SetDefaultFactory configures the process-wide handle.
func SetDefaultFactory(f Factory) { defaultHandle.SetFactory(f) }

// ResetDefault drops the process-wide Completer.
func ResetDefault() { defaultHandle.Reset() }
