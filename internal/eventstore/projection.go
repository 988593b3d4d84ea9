// Package eventstore records the history of prerender runs in SQLite and
// rebuilds run summaries from it.
package eventstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

const runStatusRunning = "running"

// RunSummary is a read model summarizing a completed or in-progress run.
type RunSummary struct {
	RunID        string            `json:"run_id"`
	Trigger      string            `json:"trigger,omitempty"`
	Version      string            `json:"version,omitempty"`
	Revision     string            `json:"revision,omitempty"`
	Status       string            `json:"status"` // "running" or the run outcome
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	Duration     time.Duration     `json:"duration,omitempty"`
	Concurrency  int               `json:"concurrency"`
	Pages        int               `json:"pages"`
	FilesWritten int               `json:"files_written"`
	Warnings     []string          `json:"warnings,omitempty"`
	ErrorStage   string            `json:"error_stage,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Fingerprints map[string]string `json:"fingerprints,omitempty"` // URL -> source fingerprint
}

// RunHistoryProjection maintains an in-memory view of run history,
// reconstructed from events stored in the event store.
type RunHistoryProjection struct {
	mu       sync.RWMutex
	store    Store
	runs     map[string]*RunSummary
	history  []*RunSummary // newest first
	maxSize  int
	lastSync time.Time
}

// NewRunHistoryProjection creates a new projection backed by the given store.
func NewRunHistoryProjection(store Store, maxHistorySize int) *RunHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &RunHistoryProjection{
		store:   store,
		runs:    make(map[string]*RunSummary),
		history: make([]*RunSummary, 0, maxHistorySize),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from all events in the store.
func (p *RunHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.runs = make(map[string]*RunSummary)
	p.history = make([]*RunSummary, 0, p.maxSize)
	for _, event := range events {
		p.applyEventLocked(event)
	}
	sort.SliceStable(p.history, func(i, j int) bool {
		return p.history[i].StartedAt.After(p.history[j].StartedAt)
	})
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	p.pruneRunsLocked()

	p.lastSync = time.Now()
	return nil
}

// Apply processes a single event and updates the projection.
func (p *RunHistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyEventLocked(event)
}

func (p *RunHistoryProjection) applyEventLocked(event Event) {
	runID := event.RunID()
	if runID == "" {
		return
	}

	summary, exists := p.runs[runID]
	if !exists {
		summary = &RunSummary{
			RunID:        runID,
			Status:       runStatusRunning,
			StartedAt:    event.Timestamp(),
			Fingerprints: map[string]string{},
		}
		p.runs[runID] = summary
	}

	switch event.Type() {
	case TypeRunStarted:
		summary.StartedAt = event.Timestamp()
		var meta RunStartedMeta
		if err := json.Unmarshal(event.Payload(), &meta); err == nil {
			summary.Trigger = meta.Trigger
			summary.Version = meta.Version
			summary.Revision = meta.Revision
			summary.Concurrency = meta.Concurrency
		}

	case TypePageRendered:
		var meta PageRenderedMeta
		if err := json.Unmarshal(event.Payload(), &meta); err == nil {
			summary.Pages++
			if meta.Fingerprint != "" {
				summary.Fingerprints[meta.URL] = meta.Fingerprint
			}
		}

	case TypeWarning:
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.Warnings = append(summary.Warnings, payload.Message)
		}

	case TypeRunCompleted:
		now := event.Timestamp()
		summary.CompletedAt = &now
		var meta RunCompletedMeta
		if err := json.Unmarshal(event.Payload(), &meta); err == nil {
			summary.Status = meta.Outcome
			summary.Pages = meta.Pages
			summary.FilesWritten = meta.FilesWritten
			summary.ErrorStage = meta.ErrorStage
			summary.ErrorMessage = meta.Error
			summary.Duration = meta.Duration
		}
		if summary.Duration == 0 {
			summary.Duration = now.Sub(summary.StartedAt)
		}
		p.addToHistoryLocked(summary)
	}
}

// addToHistoryLocked adds a completed run to history if not already present.
func (p *RunHistoryProjection) addToHistoryLocked(summary *RunSummary) {
	for _, h := range p.history {
		if h.RunID == summary.RunID {
			return
		}
	}
	p.history = append([]*RunSummary{summary}, p.history...)
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	p.pruneRunsLocked()
}

// pruneRunsLocked drops completed runs that fell out of the bounded history.
// Caller must hold p.mu (write lock).
func (p *RunHistoryProjection) pruneRunsLocked() {
	keep := make(map[string]struct{}, len(p.history))
	for _, h := range p.history {
		keep[h.RunID] = struct{}{}
	}
	for id, summary := range p.runs {
		if summary.Status == runStatusRunning {
			continue
		}
		if _, ok := keep[id]; !ok {
			delete(p.runs, id)
		}
	}
}

// GetHistory returns completed runs, newest first.
func (p *RunHistoryProjection) GetHistory() []*RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]*RunSummary, len(p.history))
	copy(result, p.history)
	return result
}

// GetRun returns the summary for a specific run.
func (p *RunHistoryProjection) GetRun(runID string) (*RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	summary, exists := p.runs[runID]
	if !exists {
		return nil, false
	}
	cp := *summary
	return &cp, true
}

// GetLastCompletedRun returns the most recently completed run.
func (p *RunHistoryProjection) GetLastCompletedRun() *RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.history) == 0 {
		return nil
	}
	cp := *p.history[0]
	return &cp
}

// LastSyncTime returns when the projection was last synchronized.
func (p *RunHistoryProjection) LastSyncTime() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSync
}
