package prerender

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/prerender/internal/config"
	"git.home.luguber.info/inful/prerender/internal/hooks"
	"git.home.luguber.info/inful/prerender/internal/output"
	"git.home.luguber.info/inful/prerender/internal/page"
	"git.home.luguber.info/inful/prerender/internal/registry"
	"git.home.luguber.info/inful/prerender/internal/render"
	"git.home.luguber.info/inful/prerender/internal/route"
)

type fakeRenderer struct {
	mu       sync.Mutex
	urls     []string
	aborts   map[string]*render.AbortError
	notFound bool
}

func (f *fakeRenderer) RenderPage(_ context.Context, pc *page.Context) (*render.Result, error) {
	f.mu.Lock()
	f.urls = append(f.urls, pc.URLOriginal)
	f.mu.Unlock()
	if ae, ok := f.aborts[pc.URLOriginal]; ok {
		return nil, fmt.Errorf("template: %s: executing: %w", pc.PageID, ae)
	}
	var ctxJSON []byte
	if pc.UsesClientRouter {
		ctxJSON = []byte(fmt.Sprintf(`{"pageId":%q}`, pc.PageID))
	}
	return &render.Result{
		DocumentHTML:    fmt.Sprintf("<html>%s %s</html>", pc.PageID, pc.URLOriginal),
		PageContextJSON: ctxJSON,
		PageContext:     pc,
	}, nil
}

func (f *fakeRenderer) RenderNotFound(_ context.Context, init map[string]any) (*render.Result, error) {
	if ae, ok := f.aborts["/404"]; ok {
		return nil, ae
	}
	if !f.notFound {
		return nil, nil
	}
	pc := page.New("/404", init)
	pc.Is404 = true
	return &render.Result{DocumentHTML: "<html>404</html>", PageContext: pc}, nil
}

func (f *fakeRenderer) rendered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.urls...)
	sort.Strings(out)
	return out
}

// memSink collects output files by relative path.
type memSink struct {
	mu    sync.Mutex
	files map[string]output.File
}

func newMemSink() *memSink { return &memSink{files: map[string]output.File{}} }

func (s *memSink) Write(_ context.Context, f output.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[f.RelPath] = f
	return nil
}

func (s *memSink) paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for p := range s.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

type testRun struct {
	t        *testing.T
	builder  *registry.Builder
	cfg      *config.Config
	renderer *fakeRenderer
	sink     *memSink
}

func newTestRun(t *testing.T) *testRun {
	t.Helper()
	cfg := config.Default()
	cfg.Root = t.TempDir()
	cfg.Prerender = &config.PrerenderConfig{Enabled: true, Parallel: config.ParallelN(4)}
	return &testRun{
		t:        t,
		builder:  registry.NewBuilder(cfg.Root),
		cfg:      cfg,
		renderer: &fakeRenderer{},
		sink:     newMemSink(),
	}
}

func (tr *testRun) page(pageID, routeString string, values map[string]registry.ConfigValue) *testRun {
	if values == nil {
		values = map[string]registry.ConfigValue{}
	}
	if _, ok := values[registry.ExportPage]; !ok {
		values[registry.ExportPage] = registry.ConfigValue{Value: "# " + pageID, DefinedAt: pageID + "/+Page.md"}
	}
	tr.builder.PageConfig(registry.NewPageConfig(pageID, route.FromString(routeString, pageID+"/+route"), values))
	return tr
}

func (tr *testRun) errorPage(pageID string) *testRun {
	tr.builder.PageConfig(registry.NewErrorPageConfig(pageID, map[string]registry.ConfigValue{
		registry.ExportPage: {Value: "# Not found", DefinedAt: pageID + "/+Page.md"},
	}))
	return tr
}

func (tr *testRun) run() (*Report, error) {
	tr.t.Helper()
	cat, err := tr.builder.Build()
	require.NoError(tr.t, err)
	router, err := NewRouter(cat, nil)
	require.NoError(tr.t, err)
	return Run(context.Background(), cat, router, tr.renderer, Options{
		Config: tr.cfg,
		Sink:   tr.sink,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func provide(v any) hooks.ProvideFunc {
	return func(context.Context) (any, error) { return v, nil }
}

func hookValue(fn any, definedAt string) registry.ConfigValue {
	return registry.ConfigValue{Value: fn, DefinedAt: definedAt}
}

func routeOverride(dropURL string) route.BeforeRouteFunc {
	return func(_ context.Context, pc *page.Context) (*route.Result, error) {
		if pc.URLOriginal == dropURL {
			return &route.Result{}, nil
		}
		return nil, nil
	}
}

type countingObserver struct {
	NoopObserver
	mu                         sync.Mutex
	stages, pages, files, runs int
	warnings                   []string
}

func (o *countingObserver) OnStageComplete(StageName, time.Duration, StageResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages++
}

func (o *countingObserver) OnPageRendered(*Artifact) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pages++
}

func (o *countingObserver) OnFileWritten(output.File) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files++
}

func (o *countingObserver) OnWarning(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.warnings = append(o.warnings, msg)
}

func (o *countingObserver) OnRunComplete(*Report) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs++
}
