package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInfo    EventType = "info"
	EventWarn    EventType = "warn"
	EventSuccess EventType = "success"
	EventError   EventType = "error"
)

const (
	PipelineGenerate = "events:pipeline:generate"
	PipelineReview   = "events:pipeline:review"
	PublishState     = "events:publish:state"
)

// Event is a pipeline or publish notification.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	Message    string            `json:"message"`
	Timestamp  time.Time         `json:"timestamp"`
	SessionKey string            `json:"sessionKey,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type contextKey string

const sessionContextKey contextKey = "docsmith/events/session"

// WithSession returns a derived context annotated with the given session key
// so event emitters can automatically scope payloads.
func WithSession(ctx context.Context, sessionKey string) context.Context {
	if strings.TrimSpace(sessionKey) == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionContextKey, sessionKey)
}

// SessionFromContext extracts the session key associated with ctx.
func SessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(sessionContextKey).(string); ok {
		return v
	}
	return ""
}

func New(eventType EventType, message string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func NewInfo(message string) Event    { return New(EventInfo, message) }
func NewWarn(message string) Event    { return New(EventWarn, message) }
func NewError(message string) Event   { return New(EventError, message) }
func NewSuccess(message string) Event { return New(EventSuccess, message) }

// With returns a copy of e carrying the extra metadata pairs.
func (e Event) With(kv ...string) Event {
	if len(kv) < 2 {
		return e
	}
	meta := make(map[string]string, len(e.Metadata)+len(kv)/2)
	for k, v := range e.Metadata {
		meta[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		meta[kv[i]] = kv[i+1]
	}
	e.Metadata = meta
	return e
}
