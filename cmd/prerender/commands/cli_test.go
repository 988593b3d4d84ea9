package commands

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/prerender/internal/config"
	"git.home.luguber.info/inful/prerender/internal/eventstore"
	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("prerender"),
		kong.Vars{"version": "test"},
		kong.Exit(func(code int) { t.Fatalf("unexpected exit with code %d", code) }))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	err = kctx.Run(&Global{Logger: slog.Default(), Stdout: &out}, &cli)
	return out.String(), err
}

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	write(t, root, "prerender.yaml", "prerender: true\nout_dir: dist\nreport: report.json\nhistory: .prerender/history.db\n")
	write(t, root, "pages/index/+Page.md", "# Home\n")
	write(t, root, "pages/about/+Page.md", "---\ntitle: About\n---\n# About\n")
	write(t, root, "pages/admin/+Page.md", "secret")
	write(t, root, "pages/admin/+config.yaml", "prerender: false\n")
	write(t, root, "pages/_error/+Page.md", "Not found")
	return root
}

func TestRejectRenamedFlags(t *testing.T) {
	tests := []struct {
		args    []string
		wantErr string
	}{
		{[]string{"run", "--no-extra-dir"}, "The CLI option --no-extra-dir has been renamed: use --noExtraDir instead"},
		{[]string{"--out-dir=dist"}, "The CLI option --out-dir has been renamed: use --outDir instead"},
		{[]string{"run", "--noExtraDir"}, ""},
		{[]string{"run", "--", "--no-extra-dir"}, ""},
	}
	for _, tt := range tests {
		err := RejectRenamedFlags(tt.args)
		if tt.wantErr == "" {
			assert.NoError(t, err, tt.args)
			continue
		}
		require.Error(t, err, tt.args)
		assert.Contains(t, err.Error(), tt.wantErr)
		ce, ok := errors.AsClassified(err)
		require.True(t, ok)
		assert.Equal(t, errors.CategoryUsage, ce.Category())
	}
}

func TestLogLevelPrecedence(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	cli := &CLI{}
	assert.Equal(t, config.LogLevelInfo, cli.logLevel(""))
	assert.Equal(t, config.LogLevelWarn, cli.logLevel(config.LogLevelWarn))

	cli.Verbose = true
	assert.Equal(t, config.LogLevelDebug, cli.logLevel(config.LogLevelWarn))

	t.Setenv(EnvLogLevel, "error")
	assert.Equal(t, config.LogLevelError, cli.logLevel(config.LogLevelWarn))
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	root := t.TempDir()
	cfg, err := loadConfig(&CLI{Config: config.DefaultFile, Root: root})
	require.NoError(t, err)
	assert.Equal(t, root, cfg.Root)
	assert.False(t, cfg.Enabled())
	assert.Equal(t, filepath.Join(root, "dist", "client"), cfg.OutputDir())
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := loadConfig(&CLI{Config: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file not found")
}

func TestRunFlagsOverrideConfig(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, RunFlags{Partial: true, NoExtraDir: true, Parallel: "3", OutDir: "public"}.apply(cfg))
	require.NotNil(t, cfg.Prerender)
	assert.False(t, cfg.Enabled(), "flags do not switch pre-rendering on")
	assert.True(t, cfg.Prerender.Partial)
	assert.True(t, cfg.Prerender.NoExtraDir)
	assert.Equal(t, 3, cfg.Prerender.Parallel.Limit())
	assert.Equal(t, "public", cfg.OutDir)

	err := RunFlags{Parallel: "lots"}.apply(config.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parallel should be true, false, or a non-negative integer")
}

func TestInitWritesExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site", "prerender.yaml")

	out, err := execute(t, "--config", path, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "initialized successfully")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.Example, string(data))

	out, err = execute(t, "--config", path, "init")
	require.Error(t, err)
	assert.Contains(t, out, "Initialization failed")
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "--config", path, "init", "--force")
	require.NoError(t, err)
}

func TestPagesListing(t *testing.T) {
	root := newProject(t)

	out, err := execute(t, "--config", filepath.Join(root, "prerender.yaml"), "pages")
	require.NoError(t, err)
	assert.Contains(t, out, "PAGE ID")
	assert.Regexp(t, `/pages/about\s+/about\s+config\s+yes`, out)
	assert.Regexp(t, `/pages/_error\s+\(error page\)`, out)
	assert.Contains(t, out, "no (prerender: false (/pages/admin/+config.yaml))")
}

func TestRunWritesPagesReportAndHistory(t *testing.T) {
	root := newProject(t)
	cfgPath := filepath.Join(root, "prerender.yaml")

	_, err := execute(t, "--config", cfgPath, "run", "--no-force-exit")
	require.NoError(t, err)

	for _, rel := range []string{"index.html", "about/index.html", "404.html"} {
		assert.FileExists(t, filepath.Join(root, "dist", filepath.FromSlash(rel)))
	}
	assert.NoFileExists(t, filepath.Join(root, "dist", "admin", "index.html"))

	data, err := os.ReadFile(filepath.Join(root, "report.json"))
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "prerender run", report["trigger"])
	assert.NotEmpty(t, report["run_id"])

	out, err := execute(t, "--config", cfgPath, "history", "--json")
	require.NoError(t, err)
	var runs []*eventstore.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, report["run_id"], runs[0].RunID)
	assert.Equal(t, report["outcome"], runs[0].Status)
	assert.Equal(t, "prerender run", runs[0].Trigger)
	assert.Equal(t, 3, runs[0].Pages, "index, about and the 404 page")

	_, err = execute(t, "--config", cfgPath, "history", "--run", "does-not-exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestHistoryRequiresConfiguredDatabase(t *testing.T) {
	root := t.TempDir()
	write(t, root, "prerender.yaml", "prerender: true\n")

	_, err := execute(t, "--config", filepath.Join(root, "prerender.yaml"), "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no run history")
}

func TestGeneratedPathsIncludeHistoryJournal(t *testing.T) {
	cfg := config.Default()
	cfg.Root = "/site"
	cfg.History = "history.db"
	cfg.Report = "out/report.json"

	paths := generatedPaths(cfg)
	assert.Contains(t, paths, "/site/dist/client")
	assert.Contains(t, paths, "/site/out/report.json")
	assert.Contains(t, paths, "/site/history.db-journal")
}
