package prerender

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"git.home.luguber.info/inful/prerender/internal/config"
	"git.home.luguber.info/inful/prerender/internal/hooks"
	"git.home.luguber.info/inful/prerender/internal/logfields"
	"git.home.luguber.info/inful/prerender/internal/metrics"
	"git.home.luguber.info/inful/prerender/internal/output"
	"git.home.luguber.info/inful/prerender/internal/page"
	"git.home.luguber.info/inful/prerender/internal/registry"
	"git.home.luguber.info/inful/prerender/internal/render"
	"git.home.luguber.info/inful/prerender/internal/route"
	"git.home.luguber.info/inful/prerender/internal/version"
)

// Catalog is the read-only page registry consumed by a run.
type Catalog interface {
	Root() string
	PageConfigs() []*registry.PageConfig
	GlobalConfig() registry.GlobalConfig
	PageFiles() []*registry.PageFile
	PageFilesServerSide(pageID string) []*registry.PageFile
	PageRoutes() []route.PageRoute
	AllPageIDs() []string
	IsErrorPage(pageID string) bool
	UsesClientRouter() bool
	LoadConfigValues(ctx context.Context, pageID string) (*registry.PageConfig, error)
	LoadServerSide(ctx context.Context, pageID string) (*registry.ServerSide, error)
}

// Router resolves the page of a page context.
type Router interface {
	Route(ctx context.Context, pc *page.Context) (route.Result, error)
}

// Renderer renders routed page contexts and the 404 page.
type Renderer interface {
	RenderPage(ctx context.Context, pc *page.Context) (*render.Result, error)
	RenderNotFound(ctx context.Context, init map[string]any) (*render.Result, error)
}

// Options configure a run.
type Options struct {
	// Config supplies partial, no_extra_dir, parallel and the output directory.
	Config *config.Config
	// PageContextInit is merged into every page context. It replaces
	// Config.PageContextInit when set.
	PageContextInit map[string]any
	// Sink receives every output file instead of the filesystem.
	Sink      output.Sink
	Recorder  metrics.Recorder
	Observers []Observer
	Logger    *slog.Logger
	// Hooks resolves hook file references. Defaults to a resolver rooted at
	// the catalog root.
	Hooks *hooks.Resolver
	// Trigger names what started the run, for the "not enabled" warning.
	Trigger  string
	Revision string
}

// Artifact is one rendered URL waiting to be written.
type Artifact struct {
	URLOriginal     string
	PageID          string
	PageContext     *page.Context
	HTML            string
	PageContextJSON []byte
	NoExtraDir      bool
	Title           string
	Fingerprint     string
}

// exclusion records a page that must not be pre-rendered.
type exclusion struct {
	pageID      string
	configName  string
	configValue any
	definedAt   string
}

type runState struct {
	catalog  Catalog
	router   Router
	renderer Renderer
	sink     output.Sink
	hooks    *hooks.Resolver
	limiter  *limiter
	warner   *warner
	observer Observer
	report   *Report
	logger   *slog.Logger

	partial    bool
	noExtraDir bool
	outDir     string
	init       map[string]any

	exclusions []exclusion

	mu           sync.Mutex
	pageContexts []*page.Context
	artifacts    []*Artifact
	rendered     map[string]*page.Context
}

func (rs *runState) excluded(pageID string) (exclusion, bool) {
	for _, e := range rs.exclusions {
		if e.pageID == pageID {
			return e, true
		}
	}
	return exclusion{}, false
}

func (rs *runState) newPageContext(url string) *page.Context {
	pc := page.New(url, rs.init)
	pc.NoExtraDir = rs.noExtraDir
	return pc
}

// Run pre-renders every page of catalog. The returned report is non-nil
// even when the run fails.
func Run(ctx context.Context, catalog Catalog, router Router, renderer Renderer, opts Options) (*Report, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := opts.Recorder
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	obs := observers{RecorderObserver{Rec: rec}}
	for _, o := range opts.Observers {
		if o != nil {
			obs = append(obs, o)
		}
	}
	resolver := opts.Hooks
	if resolver == nil {
		resolver = hooks.NewResolver(catalog.Root(), nil)
	}
	init := opts.PageContextInit
	if init == nil {
		init = cfg.PageContextInit
	}

	prerenderCfg := config.PrerenderConfig{}
	if cfg.Prerender != nil {
		prerenderCfg = *cfg.Prerender
	}

	report := newReport(opts.Revision)
	logger = logger.With(logfields.RunID(report.RunID))
	rs := &runState{
		catalog:    catalog,
		router:     router,
		renderer:   renderer,
		hooks:      resolver,
		observer:   obs,
		report:     report,
		logger:     logger,
		partial:    prerenderCfg.Partial,
		noExtraDir: prerenderCfg.NoExtraDir,
		outDir:     cfg.OutputDir(),
		init:       init,
		rendered:   map[string]*page.Context{},
	}
	rs.warner = newWarner(logger, report, obs)
	rs.limiter = newLimiter(prerenderCfg.Parallel.Limit(), rec)
	report.Concurrency = rs.limiter.size()

	// A custom sink takes over reporting of written files.
	quiet := opts.Sink != nil
	rs.sink = opts.Sink
	if rs.sink == nil {
		rs.sink = output.NewFSSink(cfg.Root, false)
	}

	report.Trigger = opts.Trigger
	obs.OnRunStart(report)

	for _, w := range cfg.Warnings {
		rs.warner.warn(w)
	}
	if !cfg.Enabled() {
		trigger := opts.Trigger
		if trigger == "" {
			trigger = "prerender"
		}
		rs.warner.warn(fmt.Sprintf("You're executing `%s` but the config `prerender` isn't set to true", trigger))
	}
	if !quiet {
		logger.Info(fmt.Sprintf("prerender %s pre-rendering HTML...", version.Version),
			logfields.Concurrency(rs.limiter.size()))
	}

	err := runStages(ctx, rs, defaultPipeline().defs)
	report.finish()
	obs.OnRunComplete(report)
	if err != nil {
		return report, err
	}
	if !quiet {
		logger.Info(fmt.Sprintf("%d HTML documents pre-rendered.", report.PagesPrerendered))
	}
	return report, nil
}

// ForceExit terminates the process with exit code 0. Callers flush their
// output first.
func ForceExit() {
	os.Exit(0)
}
