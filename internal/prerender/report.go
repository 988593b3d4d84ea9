package prerender

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/prerender/internal/version"
)

// Outcome is the final state of a run.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// StageCount tallies stage results.
type StageCount struct {
	Success  int `json:"success"`
	Warning  int `json:"warning"`
	Fatal    int `json:"fatal"`
	Canceled int `json:"canceled"`
}

// ArtifactSummary describes one pre-rendered URL in the report.
type ArtifactSummary struct {
	URL         string   `json:"url"`
	PageID      string   `json:"page_id,omitempty"`
	Title       string   `json:"title,omitempty"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Files       []string `json:"files"`
}

// Report captures what a run did.
type Report struct {
	SchemaVersion    int                          `json:"schema_version"`
	RunID            string                       `json:"run_id"`
	Version          string                       `json:"version"`
	Revision         string                       `json:"revision,omitempty"`
	Trigger          string                       `json:"trigger,omitempty"`
	Start            time.Time                    `json:"start"`
	End              time.Time                    `json:"end"`
	Concurrency      int                          `json:"concurrency"`
	StageDurations   map[StageName]time.Duration  `json:"stage_durations"`
	StageCounts      map[StageName]StageCount     `json:"stage_counts"`
	StageErrorKinds  map[StageName]StageErrorKind `json:"stage_error_kinds,omitempty"`
	PagesPrerendered int                          `json:"pages_prerendered"`
	FilesWritten     int                          `json:"files_written"`
	Artifacts        []ArtifactSummary            `json:"artifacts"`
	Warnings         []string                     `json:"warnings"`
	Error            string                       `json:"error,omitempty"`
	Outcome          Outcome                      `json:"outcome"`

	mu  sync.Mutex
	err error
}

func newReport(revision string) *Report {
	return &Report{
		SchemaVersion:   1,
		RunID:           uuid.NewString(),
		Version:         version.Version,
		Revision:        revision,
		Start:           time.Now(),
		StageDurations:  map[StageName]time.Duration{},
		StageCounts:     map[StageName]StageCount{},
		StageErrorKinds: map[StageName]StageErrorKind{},
		Artifacts:       []ArtifactSummary{},
		Warnings:        []string{},
	}
}

func (r *Report) recordStage(stage StageName, d time.Duration, res StageResult, se *StageError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StageDurations[stage] = d
	sc := r.StageCounts[stage]
	switch res {
	case StageResultSuccess:
		sc.Success++
	case StageResultWarning:
		sc.Warning++
	case StageResultFatal:
		sc.Fatal++
	case StageResultCanceled:
		sc.Canceled++
	}
	r.StageCounts[stage] = sc
	if se != nil {
		r.StageErrorKinds[stage] = se.Kind
		r.err = se
		r.Error = se.Error()
	}
}

func (r *Report) addWarning(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, msg)
}

func (r *Report) addArtifact(a ArtifactSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Artifacts = append(r.Artifacts, a)
}

func (r *Report) fileWritten(url, rel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FilesWritten++
	for i := range r.Artifacts {
		if r.Artifacts[i].URL == url {
			r.Artifacts[i].Files = append(r.Artifacts[i].Files, rel)
			sort.Strings(r.Artifacts[i].Files)
			return
		}
	}
}

func (r *Report) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.End = time.Now()
	sort.Slice(r.Artifacts, func(i, j int) bool { return r.Artifacts[i].URL < r.Artifacts[j].URL })
	switch {
	case r.err != nil:
		var se *StageError
		if stdErrors.As(r.err, &se) && se.Kind == StageErrorCanceled {
			r.Outcome = OutcomeCanceled
		} else {
			r.Outcome = OutcomeFailed
		}
	case len(r.Warnings) > 0:
		r.Outcome = OutcomeWarning
	default:
		r.Outcome = OutcomeSuccess
	}
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration { return r.End.Sub(r.Start) }

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("run=%s pages=%d files=%d warnings=%d duration=%s outcome=%s",
		r.RunID, r.PagesPrerendered, r.FilesWritten, len(r.Warnings),
		r.Duration().Truncate(time.Millisecond), r.Outcome)
}

// Persist writes the report as JSON to path atomically.
func (r *Report) Persist(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("ensure report dir: %w", err)
	}
	r.mu.Lock()
	data, err := json.MarshalIndent(r, "", "  ")
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename report json: %w", err)
	}
	return nil
}
