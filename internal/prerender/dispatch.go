package prerender

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
	"git.home.luguber.info/inful/prerender/internal/logfields"
	"git.home.luguber.info/inful/prerender/internal/page"
	"git.home.luguber.info/inful/prerender/internal/registry"
	"git.home.luguber.info/inful/prerender/internal/render"
)

const notFoundURL = "/404"

// stageRouteAndRender routes and renders every page context, then renders
// the 404 page unless a page context already produced /404.
func stageRouteAndRender(ctx context.Context, rs *runState) error {
	err := forEach(ctx, rs.limiter, rs.pageContexts, func(ctx context.Context, pc *page.Context) error {
		return rs.routeAndRender(ctx, pc)
	})
	if err != nil {
		return err
	}
	if err := rs.renderNotFound(ctx); err != nil {
		return err
	}
	rs.report.PagesPrerendered = len(rs.artifacts)
	return nil
}

func (rs *runState) routeAndRender(ctx context.Context, pc *page.Context) error {
	url := pc.URLOriginal
	res, err := rs.router.Route(ctx, pc)
	if err != nil {
		return err
	}
	if res.PageID == "" {
		hook := pc.ProvidedByHook
		if hook == nil {
			hook = pc.URLModifiedByHook
		}
		if hook != nil {
			return errors.UsageError(fmt.Sprintf(
				"The %s() hook defined by %s returns a URL `%s` that doesn't match any of your page routes. Make sure that the URLs returned by %s() always match the route of a page.",
				hook.HookName, hook.HookFilePath, url, hook.HookName)).
				WithContext("hook", hook.HookName).
				WithContext("hook_file", hook.HookFilePath).
				WithContext("url", url).Build()
		}
		// Static URLs only miss when an onBeforeRoute() override took over routing.
		if !res.ProvidedByOverride {
			return errors.InternalError(fmt.Sprintf("static URL %s doesn't match any page route", url)).
				WithContext("url", url).Build()
		}
		rs.logger.Debug("Skipping URL not matched by onBeforeRoute()", logfields.URL(url))
		return nil
	}

	pc.PageID = res.PageID
	pc.RouteParams = res.RouteParams
	if pc.RouteParams == nil {
		pc.RouteParams = map[string]string{}
	}
	ss, err := rs.catalog.LoadServerSide(ctx, pc.PageID)
	if err != nil {
		return err
	}
	pc.Exports = ss.Exports
	pc.UsesClientRouter = rs.usesClientRouter(pc.PageID)
	pc.Is404 = false

	out, err := rs.renderer.RenderPage(ctx, pc)
	if err != nil {
		return abortToUsage(err, "`"+url+"`")
	}
	a := &Artifact{
		URLOriginal:     url,
		PageID:          pc.PageID,
		PageContext:     pc,
		HTML:            out.DocumentHTML,
		PageContextJSON: out.PageContextJSON,
		NoExtraDir:      rs.noExtraDir,
		Title:           out.Title,
		Fingerprint:     ss.Fingerprint,
	}
	rs.addArtifact(a)
	return nil
}

func (rs *runState) renderNotFound(ctx context.Context) error {
	for _, a := range rs.artifacts {
		if a.URLOriginal == notFoundURL {
			return nil
		}
	}
	out, err := rs.renderer.RenderNotFound(ctx, rs.init)
	if err != nil {
		return abortToUsage(err, "the 404 page")
	}
	if out == nil {
		return nil
	}
	rs.addArtifact(&Artifact{
		URLOriginal: notFoundURL,
		PageContext: out.PageContext,
		HTML:        out.DocumentHTML,
		NoExtraDir:  true,
		Title:       out.Title,
	})
	return nil
}

// preferRendered reports whether next should replace prev as the context
// recorded for a page. Hook-provided contexts win, then the smallest URL, so
// the choice does not depend on render order.
func preferRendered(next, prev *page.Context) bool {
	if (next.ProvidedByHook != nil) != (prev.ProvidedByHook != nil) {
		return next.ProvidedByHook != nil
	}
	return next.URLOriginal < prev.URLOriginal
}

func (rs *runState) addArtifact(a *Artifact) {
	rs.mu.Lock()
	rs.artifacts = append(rs.artifacts, a)
	if a.PageID != "" {
		if prev, ok := rs.rendered[a.PageID]; !ok || preferRendered(a.PageContext, prev) {
			rs.rendered[a.PageID] = a.PageContext
		}
	}
	rs.mu.Unlock()

	rs.report.addArtifact(ArtifactSummary{
		URL:         a.URLOriginal,
		PageID:      a.PageID,
		Title:       a.Title,
		Fingerprint: a.Fingerprint,
		Files:       []string{},
	})
	rs.observer.OnPageRendered(a)
	rs.logger.Debug("Pre-rendered page", logfields.URL(a.URLOriginal), logfields.PageID(a.PageID))
}

// usesClientRouter reads the page's clientRouting config and falls back to
// the build-wide default.
func (rs *runState) usesClientRouter(pageID string) bool {
	for _, cfg := range rs.catalog.PageConfigs() {
		if cfg.PageID != pageID {
			continue
		}
		if v, ok := cfg.Value(registry.ConfigClientRouting); ok {
			if b, isBool := v.Value.(bool); isBool {
				return b
			}
		}
		break
	}
	return rs.catalog.UsesClientRouter()
}

// abortToUsage turns a render-time redirect or notFound into a usage error.
func abortToUsage(err error, target string) error {
	abort, ok := render.IsAbort(err)
	if !ok {
		return err
	}
	return errors.UsageError(fmt.Sprintf(
		"`%s` intercepted while pre-rendering %s but `%s` isn't supported for pre-rendered pages",
		abort.Call, target, abort.Caller)).
		WithCause(err).Build()
}
