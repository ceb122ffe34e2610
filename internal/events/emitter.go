// Package events carries pipeline and publish notifications to whatever
// sink the process installs. The default sink discards them.
package events

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

var Emit = func(ctx context.Context, name string, evt Event) {}

// EnableLogEmitter routes every event to logger.
func EnableLogEmitter(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	SetCustomEmitter(func(ctx context.Context, name string, evt Event) {
		logEvent(logger, name, evt)
	})
}

func SetCustomEmitter(f func(ctx context.Context, name string, evt Event)) {
	if f == nil {
		Emit = func(context.Context, string, Event) {}
		return
	}
	Emit = func(ctx context.Context, name string, evt Event) {
		if evt.SessionKey == "" {
			if session := SessionFromContext(ctx); session != "" {
				evt.SessionKey = session
			}
		}
		f(ctx, name, evt)
	}
}

func logEvent(logger *zap.Logger, name string, evt Event) {
	fields := []zap.Field{
		zap.String("event", name),
		zap.String("id", evt.ID),
	}
	if evt.SessionKey != "" {
		fields = append(fields, zap.String("session", evt.SessionKey))
	}
	keys := make([]string, 0, len(evt.Metadata))
	for k := range evt.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.String(k, evt.Metadata[k]))
	}

	switch evt.Type {
	case EventError:
		logger.Error(evt.Message, fields...)
	case EventWarn:
		logger.Warn(evt.Message, fields...)
	default:
		logger.Info(evt.Message, fields...)
	}
}
