package eventstore

import (
	"encoding/json"
	"testing"
	"time"
)

const testRunID = "run-123"

func TestEventPayloads(t *testing.T) {
	tests := []struct {
		name      string
		createFn  func() (Event, error)
		eventType string
		wantKey   string
	}{
		{
			name: "RunStarted",
			createFn: func() (Event, error) {
				return NewRunStarted(testRunID, RunStartedMeta{Trigger: "prerender run", Version: "dev", Concurrency: 4})
			},
			eventType: TypeRunStarted,
			wantKey:   "concurrency",
		},
		{
			name: "PageRendered",
			createFn: func() (Event, error) {
				return NewPageRendered(testRunID, PageRenderedMeta{URL: "/about", PageID: "/pages/about"})
			},
			eventType: TypePageRendered,
			wantKey:   "page_id",
		},
		{
			name: "WarningEmitted",
			createFn: func() (Event, error) {
				return NewWarningEmitted(testRunID, "careful")
			},
			eventType: TypeWarning,
			wantKey:   "message",
		},
		{
			name: "RunCompleted",
			createFn: func() (Event, error) {
				return NewRunCompleted(testRunID, RunCompletedMeta{Outcome: "success", Pages: 2, Duration: time.Second})
			},
			eventType: TypeRunCompleted,
			wantKey:   "duration_ns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := tt.createFn()
			if err != nil {
				t.Fatalf("failed to create event: %v", err)
			}
			if event.RunID() != testRunID {
				t.Errorf("expected run_id %s, got %s", testRunID, event.RunID())
			}
			if event.Type() != tt.eventType {
				t.Errorf("expected event_type %s, got %s", tt.eventType, event.Type())
			}
			if event.Timestamp().IsZero() {
				t.Error("expected non-zero timestamp")
			}
			var payload map[string]any
			if err := json.Unmarshal(event.Payload(), &payload); err != nil {
				t.Fatalf("payload is not valid JSON: %v", err)
			}
			if _, ok := payload[tt.wantKey]; !ok {
				t.Errorf("expected payload key %q in %s", tt.wantKey, event.Payload())
			}
		})
	}
}

func TestPageRenderedOmitsEmptyFields(t *testing.T) {
	event, err := NewPageRendered(testRunID, PageRenderedMeta{URL: "/404"})
	if err != nil {
		t.Fatalf("failed to create event: %v", err)
	}
	if got := string(event.Payload()); got != `{"url":"/404"}` {
		t.Errorf("unexpected payload %s", got)
	}
}
