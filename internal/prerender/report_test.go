package prerender

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportOutcome(t *testing.T) {
	cases := []struct {
		name  string
		setup func(r *Report)
		want  Outcome
	}{
		{"success", func(*Report) {}, OutcomeSuccess},
		{"warning", func(r *Report) { r.addWarning("careful") }, OutcomeWarning},
		{"failed", func(r *Report) {
			r.addWarning("careful")
			r.recordStage(StageWrite, time.Millisecond, StageResultFatal,
				&StageError{Kind: StageErrorFatal, Stage: StageWrite, Err: os.ErrPermission})
		}, OutcomeFailed},
		{"canceled", func(r *Report) {
			r.recordStage(StageRouteAndRender, time.Millisecond, StageResultCanceled,
				&StageError{Kind: StageErrorCanceled, Stage: StageRouteAndRender, Err: os.ErrDeadlineExceeded})
		}, OutcomeCanceled},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := newReport("")
			c.setup(r)
			r.finish()
			assert.Equal(t, c.want, r.Outcome)
		})
	}
}

func TestReportFilesAttachToArtifacts(t *testing.T) {
	r := newReport("abc123")
	r.addArtifact(ArtifactSummary{URL: "/b", Files: []string{}})
	r.addArtifact(ArtifactSummary{URL: "/a", Files: []string{}})
	r.fileWritten("/a", "a/index.pageContext.json")
	r.fileWritten("/a", "a/index.html")
	r.fileWritten("/b", "b/index.html")
	r.finish()

	require.Len(t, r.Artifacts, 2)
	assert.Equal(t, "/a", r.Artifacts[0].URL)
	assert.Equal(t, []string{"a/index.html", "a/index.pageContext.json"}, r.Artifacts[0].Files)
	assert.Equal(t, 3, r.FilesWritten)
	assert.Equal(t, "abc123", r.Revision)
}

func TestReportStageCounts(t *testing.T) {
	r := newReport("")
	r.recordStage(StageExclusions, time.Millisecond, StageResultSuccess, nil)
	r.recordStage(StageValidate, 2*time.Millisecond, StageResultWarning, nil)
	assert.Equal(t, 1, r.StageCounts[StageExclusions].Success)
	assert.Equal(t, 1, r.StageCounts[StageValidate].Warning)
	assert.Equal(t, 2*time.Millisecond, r.StageDurations[StageValidate])
	assert.Empty(t, r.StageErrorKinds)
}

func TestReportSummary(t *testing.T) {
	r := newReport("")
	r.PagesPrerendered = 2
	r.addWarning("w")
	r.finish()
	s := r.Summary()
	assert.Contains(t, s, "run="+r.RunID)
	assert.Contains(t, s, "pages=2")
	assert.Contains(t, s, "warnings=1")
	assert.Contains(t, s, "outcome=warning")
}

func TestReportPersist(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "report.json")
	r := newReport("")
	r.addArtifact(ArtifactSummary{URL: "/", PageID: "/pages/index", Files: []string{}})
	r.fileWritten("/", "index.html")
	r.finish()
	require.NoError(t, r.Persist(path))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r.RunID, decoded["run_id"])
	assert.Equal(t, "success", decoded["outcome"])
	assert.EqualValues(t, 1, decoded["files_written"])
}
