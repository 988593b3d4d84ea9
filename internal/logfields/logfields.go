package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyURL        = "url"
	KeyPageID     = "page_id"
	KeyHook       = "hook"
	KeyHookFile   = "hook_file"
	KeyFile       = "file"
	KeyPath       = "path"
	KeyCount      = "count"
	KeyLimit      = "concurrency"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr        { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func PageID(id string) slog.Attr       { return slog.String(KeyPageID, id) }
func Hook(name string) slog.Attr       { return slog.String(KeyHook, name) }
func HookFile(path string) slog.Attr   { return slog.String(KeyHookFile, path) }
func File(f string) slog.Attr          { return slog.String(KeyFile, f) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Concurrency(n int) slog.Attr      { return slog.Int(KeyLimit, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
