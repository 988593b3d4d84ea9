package prerender

import (
	"log/slog"
	"sync"
)

// warner emits each distinct warning once per run.
type warner struct {
	mu     sync.Mutex
	seen   map[string]bool
	logger *slog.Logger
	report *Report
	obs    Observer
}

func newWarner(logger *slog.Logger, report *Report, obs Observer) *warner {
	return &warner{seen: map[string]bool{}, logger: logger, report: report, obs: obs}
}

func (w *warner) warn(msg string, attrs ...any) {
	w.mu.Lock()
	if w.seen[msg] {
		w.mu.Unlock()
		return
	}
	w.seen[msg] = true
	w.report.addWarning(msg)
	w.mu.Unlock()

	w.logger.Warn(msg, attrs...)
	w.obs.OnWarning(msg)
}

func (w *warner) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}
