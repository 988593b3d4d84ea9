package eventstore

import (
	"context"
	"testing"
	"time"
)

func TestRunHistoryProjection_ApplyEvents(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	projection := NewRunHistoryProjection(store, 10)

	start, err := NewRunStarted(testRunID, RunStartedMeta{Trigger: "prerender run", Revision: "abc123", Concurrency: 8})
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}
	projection.Apply(start)

	summary, exists := projection.GetRun(testRunID)
	if !exists {
		t.Fatal("Expected run to exist")
	}
	if summary.Status != "running" {
		t.Errorf("Expected status 'running', got %q", summary.Status)
	}
	if summary.Revision != "abc123" || summary.Concurrency != 8 {
		t.Errorf("Unexpected start metadata: %+v", summary)
	}
	if len(projection.GetHistory()) != 0 {
		t.Error("Running runs must not appear in history")
	}

	page, _ := NewPageRendered(testRunID, PageRenderedMeta{URL: "/about", PageID: "/pages/about", Fingerprint: "v5:abc"})
	projection.Apply(page)
	warning, _ := NewWarningEmitted(testRunID, "careful")
	projection.Apply(warning)

	summary, _ = projection.GetRun(testRunID)
	if summary.Pages != 1 {
		t.Errorf("Expected 1 page, got %d", summary.Pages)
	}
	if summary.Fingerprints["/about"] != "v5:abc" {
		t.Errorf("Expected fingerprint for /about, got %v", summary.Fingerprints)
	}
	if len(summary.Warnings) != 1 || summary.Warnings[0] != "careful" {
		t.Errorf("Expected warning to be recorded, got %v", summary.Warnings)
	}

	done, _ := NewRunCompleted(testRunID, RunCompletedMeta{Outcome: "warning", Pages: 2, FilesWritten: 3, Duration: 2 * time.Second})
	projection.Apply(done)

	summary, _ = projection.GetRun(testRunID)
	if summary.Status != "warning" {
		t.Errorf("Expected status 'warning', got %q", summary.Status)
	}
	if summary.CompletedAt == nil {
		t.Error("Expected CompletedAt to be set")
	}
	if summary.Pages != 2 || summary.FilesWritten != 3 || summary.Duration != 2*time.Second {
		t.Errorf("Unexpected completion data: %+v", summary)
	}
	last := projection.GetLastCompletedRun()
	if last == nil || last.RunID != testRunID {
		t.Errorf("Expected last completed run %s, got %+v", testRunID, last)
	}
}

func TestRunHistoryProjection_FailedRun(t *testing.T) {
	projection := NewRunHistoryProjection(nil, 10)

	start, _ := NewRunStarted("run-fail", RunStartedMeta{})
	projection.Apply(start)
	done, _ := NewRunCompleted("run-fail", RunCompletedMeta{Outcome: "failed", ErrorStage: "collect_hook_urls", Error: "duplicate URL"})
	projection.Apply(done)

	summary, ok := projection.GetRun("run-fail")
	if !ok {
		t.Fatal("Expected run to exist")
	}
	if summary.Status != "failed" || summary.ErrorStage != "collect_hook_urls" || summary.ErrorMessage != "duplicate URL" {
		t.Errorf("Unexpected failure data: %+v", summary)
	}
}

func TestRunHistoryProjection_Rebuild(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		at := base.Add(time.Duration(i) * time.Minute)
		store.now = func() time.Time { return at }
		started, _ := NewRunStarted(id, RunStartedMeta{Trigger: "prerender run"})
		completed, _ := NewRunCompleted(id, RunCompletedMeta{Outcome: "success"})
		for _, e := range []Event{started, completed} {
			if err := store.Append(ctx, id, e.Type(), e.Payload(), nil); err != nil {
				t.Fatalf("Failed to append: %v", err)
			}
		}
	}

	projection := NewRunHistoryProjection(store, 2)
	if err := projection.Rebuild(ctx); err != nil {
		t.Fatalf("Failed to rebuild: %v", err)
	}

	history := projection.GetHistory()
	if len(history) != 2 {
		t.Fatalf("Expected history trimmed to 2, got %d", len(history))
	}
	if history[0].RunID != "run-c" || history[1].RunID != "run-b" {
		t.Errorf("Expected newest first, got %s, %s", history[0].RunID, history[1].RunID)
	}
	if _, ok := projection.GetRun("run-a"); ok {
		t.Error("Expected pruned run to be dropped")
	}
	if projection.LastSyncTime().IsZero() {
		t.Error("Expected LastSyncTime to be set")
	}
}
