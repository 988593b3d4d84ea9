package eventstore

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/prerender/internal/logfields"
	"git.home.luguber.info/inful/prerender/internal/prerender"
)

// HistoryObserver records a run into a Store. Failing writes are logged and
// never interrupt the run.
type HistoryObserver struct {
	prerender.NoopObserver

	store      Store
	projection *RunHistoryProjection
	logger     *slog.Logger

	mu    sync.Mutex
	runID string
}

// NewHistoryObserver creates an observer writing to store. projection may be
// nil; when set it is kept in sync with the appended events.
func NewHistoryObserver(store Store, projection *RunHistoryProjection, logger *slog.Logger) *HistoryObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryObserver{store: store, projection: projection, logger: logger}
}

func (h *HistoryObserver) OnRunStart(r *prerender.Report) {
	h.mu.Lock()
	h.runID = r.RunID
	h.mu.Unlock()
	h.record(NewRunStarted(r.RunID, RunStartedMeta{
		Trigger:     r.Trigger,
		Version:     r.Version,
		Revision:    r.Revision,
		Concurrency: r.Concurrency,
	}))
}

func (h *HistoryObserver) OnPageRendered(a *prerender.Artifact) {
	h.record(NewPageRendered(h.currentRun(), PageRenderedMeta{
		URL:         a.URLOriginal,
		PageID:      a.PageID,
		Title:       a.Title,
		Fingerprint: a.Fingerprint,
	}))
}

func (h *HistoryObserver) OnWarning(msg string) {
	h.record(NewWarningEmitted(h.currentRun(), msg))
}

func (h *HistoryObserver) OnRunComplete(r *prerender.Report) {
	meta := RunCompletedMeta{
		Outcome:      string(r.Outcome),
		Pages:        r.PagesPrerendered,
		FilesWritten: r.FilesWritten,
		Warnings:     len(r.Warnings),
		Error:        r.Error,
		Duration:     r.Duration(),
	}
	for stage := range r.StageErrorKinds {
		meta.ErrorStage = string(stage)
	}
	h.record(NewRunCompleted(r.RunID, meta))
}

func (h *HistoryObserver) currentRun() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runID
}

// record appends an event built by one of the New* constructors.
func (h *HistoryObserver) record(e Event, err error) {
	if err == nil && e.RunID() == "" {
		err = stdErrors.New("event recorded outside of a run")
	}
	if err != nil {
		h.logger.Warn("Failed to build history event", logfields.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.store.Append(ctx, e.RunID(), e.Type(), e.Payload(), e.Metadata()); err != nil {
		h.logger.Warn("Failed to record history event",
			logfields.RunID(e.RunID()), slog.String("event", e.Type()), logfields.Error(err))
		return
	}
	if h.projection != nil {
		h.projection.Apply(e)
	}
}
