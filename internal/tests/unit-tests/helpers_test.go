package unit_tests

import (
	"context"
	"sync"
	"testing"
	"time"

	"docsmith/internal/events"
	"docsmith/internal/llm"
)

func fastPolicy() llm.Policy {
	return llm.Policy{InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, MaxRetries: 3}
}

type recordedEvent struct {
	Name  string
	Event events.Event
}

// captureEvents installs a recording emitter for the duration of the test.
func captureEvents(t *testing.T) func() []recordedEvent {
	t.Helper()
	var mu sync.Mutex
	var got []recordedEvent
	events.SetCustomEmitter(func(_ context.Context, name string, evt events.Event) {
		mu.Lock()
		got = append(got, recordedEvent{Name: name, Event: evt})
		mu.Unlock()
	})
	t.Cleanup(func() { events.SetCustomEmitter(nil) })
	return func() []recordedEvent {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedEvent(nil), got...)
	}
}

// publishStates extracts the state metadata of publish events in order.
func publishStates(evts []recordedEvent) []string {
	var states []string
	for _, e := range evts {
		if e.Name == events.PublishState {
			states = append(states, e.Event.Metadata["state"])
		}
	}
	return states
}
