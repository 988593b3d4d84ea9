package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"RunID", KeyRunID, "r1", RunID("r1")},
		{"Stage", KeyStage, "write", Stage("write")},
		{"URL", KeyURL, "/about", URL("/about")},
		{"PageID", KeyPageID, "/pages/about", PageID("/pages/about")},
		{"Hook", KeyHook, "onBeforePrerenderStart", Hook("onBeforePrerenderStart")},
		{"HookFile", KeyHookFile, "/pages/urls.yaml", HookFile("/pages/urls.yaml")},
		{"File", KeyFile, "about/index.html", File("about/index.html")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
	}
	for _, c := range cases {
		if c.attr.Key != c.attrKey {
			t.Errorf("%s: key = %q, want %q", c.name, c.attr.Key, c.attrKey)
		}
		if c.attr.Value.String() != c.attrVal {
			t.Errorf("%s: value = %q, want %q", c.name, c.attr.Value.String(), c.attrVal)
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if a := Count(3); a.Key != KeyCount || a.Value.Int64() != 3 {
		t.Errorf("Count attr mismatch: %v", a)
	}
	if a := Concurrency(8); a.Key != KeyLimit || a.Value.Int64() != 8 {
		t.Errorf("Concurrency attr mismatch: %v", a)
	}
	if a := DurationMS(1.5); a.Value.Float64() != 1.5 {
		t.Errorf("DurationMS attr mismatch: %v", a)
	}
}

func TestErrorHelper(t *testing.T) {
	if a := Error(nil); a.Value.String() != "" {
		t.Errorf("nil error should produce empty string, got %q", a.Value.String())
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Errorf("expected boom, got %q", a.Value.String())
	}
}
