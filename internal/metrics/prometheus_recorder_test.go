package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("route_and_render", 150*time.Millisecond)
	pr.ObserveRunDuration(500 * time.Millisecond)
	pr.IncStageResult("route_and_render", ResultSuccess)
	pr.IncRunOutcome("success")
	pr.IncPagesRendered("/pages/about")
	pr.IncFilesWritten("html")
	pr.IncFilesWritten("html")
	pr.IncWarnings()
	pr.SetConcurrency(4)
	pr.AddInFlight(1)
	pr.AddInFlight(-1)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
	values := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[mf.GetName()] += m.GetGauge().GetValue()
			}
		}
	}
	if got := values["prerender_files_written_total"]; got != 2 {
		t.Fatalf("files_written_total = %v, want 2", got)
	}
	if got := values["prerender_tasks_in_flight"]; got != 0 {
		t.Fatalf("tasks_in_flight = %v, want 0", got)
	}
	if got := values["prerender_concurrency_limit"]; got != 4 {
		t.Fatalf("concurrency_limit = %v, want 4", got)
	}
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncWarnings()
	pr.ObserveStageDuration("write", time.Second)
	pr.AddInFlight(1)
}

func TestWriteTextfile(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncWarnings()

	path := filepath.Join(t.TempDir(), "nested", "prerender.prom")
	if err := WriteTextfile(path, reg); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "prerender_warnings_total 1") {
		t.Fatalf("textfile missing warnings counter:\n%s", data)
	}
}

func TestWriteTextfileNoPath(t *testing.T) {
	if err := WriteTextfile("", prom.NewRegistry()); err != nil {
		t.Fatalf("expected nil for empty path, got %v", err)
	}
}
