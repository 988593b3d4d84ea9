package route

import (
	"context"
	"fmt"
	"sort"

	"git.home.luguber.info/inful/prerender/internal/page"
)

// Result is the outcome of routing one page context. An empty PageID means
// no page matched.
type Result struct {
	PageID             string
	RouteParams        map[string]string
	ProvidedByOverride bool
}

// BeforeRouteFunc may take over routing for a URL. Returning nil falls
// through to route matching; a non-nil result is used as is, even when its
// PageID is empty.
type BeforeRouteFunc func(ctx context.Context, pc *page.Context) (*Result, error)

// Router matches page contexts against a fixed set of page routes.
type Router struct {
	routes      []PageRoute
	beforeRoute BeforeRouteFunc
}

// NewRouter creates a router. beforeRoute may be nil.
func NewRouter(routes []PageRoute, beforeRoute BeforeRouteFunc) *Router {
	sorted := make([]PageRoute, len(routes))
	copy(sorted, routes)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	return &Router{routes: sorted, beforeRoute: beforeRoute}
}

// less orders routes by match priority: static strings, then parametrized
// strings with more static segments and fewer params, then functions.
func less(a, b PageRoute) bool {
	if a.Route.Kind != b.Route.Kind {
		return a.Route.Kind == KindString
	}
	if a.Route.Kind == KindString {
		as, aseg, ap := precedence(a.Route.String)
		bs, bseg, bp := precedence(b.Route.String)
		if as != bs {
			return as > bs
		}
		if aseg != bseg {
			return aseg > bseg
		}
		if ap != bp {
			return ap < bp
		}
	}
	return a.PageID < b.PageID
}

// Route resolves the page for pc.
func (r *Router) Route(ctx context.Context, pc *page.Context) (Result, error) {
	if r.beforeRoute != nil {
		res, err := r.beforeRoute(ctx, pc)
		if err != nil {
			return Result{}, fmt.Errorf("onBeforeRoute: %w", err)
		}
		if res != nil {
			out := *res
			out.ProvidedByOverride = true
			if out.RouteParams == nil {
				out.RouteParams = map[string]string{}
			}
			return out, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	pathname := pc.URL.Pathname
	if pathname == "" {
		pathname = page.NormalizeURL(pc.URLOriginal)
	}
	for _, pr := range r.routes {
		var (
			params map[string]string
			ok     bool
		)
		switch pr.Route.Kind {
		case KindString:
			params, ok = matchString(pr.Route.String, pathname)
		case KindFunction:
			if pr.Route.Func != nil {
				params, ok = pr.Route.Func(pathname)
			}
		}
		if ok {
			if params == nil {
				params = map[string]string{}
			}
			return Result{PageID: pr.PageID, RouteParams: params}, nil
		}
	}
	return Result{RouteParams: map[string]string{}}, nil
}
