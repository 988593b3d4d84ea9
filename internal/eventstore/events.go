package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
)

// Event type names.
const (
	TypeRunStarted   = "RunStarted"
	TypePageRendered = "PageRendered"
	TypeWarning      = "WarningEmitted"
	TypeRunCompleted = "RunCompleted"
)

// RunStartedMeta describes how a run was started.
type RunStartedMeta struct {
	Trigger     string `json:"trigger"`
	Version     string `json:"version"`
	Revision    string `json:"revision,omitempty"`
	Concurrency int    `json:"concurrency"`
}

// RunStarted is emitted when a run begins.
type RunStarted struct {
	BaseEvent
	Meta RunStartedMeta
}

// NewRunStarted creates a RunStarted event.
func NewRunStarted(runID string, meta RunStartedMeta) (*RunStarted, error) {
	payload, err := marshalPayload(runID, TypeRunStarted, meta)
	if err != nil {
		return nil, err
	}
	return &RunStarted{BaseEvent: newBase(runID, TypeRunStarted, payload), Meta: meta}, nil
}

// PageRenderedMeta describes one pre-rendered URL.
type PageRenderedMeta struct {
	URL         string `json:"url"`
	PageID      string `json:"page_id,omitempty"`
	Title       string `json:"title,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// PageRendered is emitted for each rendered URL, including the 404 page.
type PageRendered struct {
	BaseEvent
	Meta PageRenderedMeta
}

// NewPageRendered creates a PageRendered event.
func NewPageRendered(runID string, meta PageRenderedMeta) (*PageRendered, error) {
	payload, err := marshalPayload(runID, TypePageRendered, meta)
	if err != nil {
		return nil, err
	}
	return &PageRendered{BaseEvent: newBase(runID, TypePageRendered, payload), Meta: meta}, nil
}

// WarningEmitted is emitted once per distinct warning of a run.
type WarningEmitted struct {
	BaseEvent
	Message string
}

// NewWarningEmitted creates a WarningEmitted event.
func NewWarningEmitted(runID, message string) (*WarningEmitted, error) {
	payload, err := marshalPayload(runID, TypeWarning, map[string]string{"message": message})
	if err != nil {
		return nil, err
	}
	return &WarningEmitted{BaseEvent: newBase(runID, TypeWarning, payload), Message: message}, nil
}

// RunCompletedMeta is the final state of a run.
type RunCompletedMeta struct {
	Outcome      string        `json:"outcome"`
	Pages        int           `json:"pages"`
	FilesWritten int           `json:"files_written"`
	Warnings     int           `json:"warnings"`
	ErrorStage   string        `json:"error_stage,omitempty"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
}

// RunCompleted is emitted when a run ends, whatever its outcome.
type RunCompleted struct {
	BaseEvent
	Meta RunCompletedMeta
}

// NewRunCompleted creates a RunCompleted event.
func NewRunCompleted(runID string, meta RunCompletedMeta) (*RunCompleted, error) {
	payload, err := marshalPayload(runID, TypeRunCompleted, meta)
	if err != nil {
		return nil, err
	}
	return &RunCompleted{BaseEvent: newBase(runID, TypeRunCompleted, payload), Meta: meta}, nil
}

func newBase(runID, eventType string, payload []byte) BaseEvent {
	return BaseEvent{
		EventRunID:     runID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   payload,
	}
}

func marshalPayload(runID, eventType string, v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, errors.HistoryError("failed to marshal " + eventType + " payload").
			WithCause(err).
			WithContext("run_id", runID).
			Build()
	}
	return payload, nil
}
