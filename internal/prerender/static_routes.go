package prerender

import (
	"context"

	"git.home.luguber.info/inful/prerender/internal/page"
	"git.home.luguber.info/inful/prerender/internal/route"
)

// stageStaticRoutes adds a page context for every page whose route is a
// static string, unless the page is excluded or a hook already provided
// the URL.
func stageStaticRoutes(ctx context.Context, rs *runState) error {
	return forEach(ctx, rs.limiter, rs.catalog.PageRoutes(), func(ctx context.Context, pr route.PageRoute) error {
		if _, excluded := rs.excluded(pr.PageID); excluded {
			return nil
		}
		if pr.Route.Kind != route.KindString {
			return nil
		}
		url, ok := route.StaticURL(pr.Route.String)
		if !ok {
			return nil
		}
		pc := rs.registerStaticURL(url, pr.PageID)
		if pc == nil {
			return nil
		}
		ss, err := rs.catalog.LoadServerSide(ctx, pr.PageID)
		if err != nil {
			return err
		}
		pc.Exports = ss.Exports
		return nil
	})
}

// registerStaticURL returns nil when url is already in the working set.
func (rs *runState) registerStaticURL(url, pageID string) *page.Context {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, existing := range rs.pageContexts {
		if page.SameURL(existing.URLOriginal, url) {
			return nil
		}
	}
	pc := rs.newPageContext(url)
	pc.PageID = pageID
	rs.pageContexts = append(rs.pageContexts, pc)
	return pc
}
