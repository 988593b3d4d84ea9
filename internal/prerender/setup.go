package prerender

import (
	stdErrors "errors"

	"git.home.luguber.info/inful/prerender/internal/hooks"
	"git.home.luguber.info/inful/prerender/internal/registry"
	"git.home.luguber.info/inful/prerender/internal/route"
)

// NewRouter builds the router of catalog. The global onBeforeRoute config,
// when set, runs before route matching.
func NewRouter(catalog Catalog, resolver *hooks.Resolver) (*route.Router, error) {
	if resolver == nil {
		resolver = hooks.NewResolver(catalog.Root(), nil)
	}
	var before route.BeforeRouteFunc
	if v, ok := catalog.GlobalConfig().Values[registry.ConfigOnBeforeRoute]; ok && v.Value != nil {
		fn, file, err := resolver.BeforeRoute(v.Value, v.DefinedAt)
		if stdErrors.Is(err, hooks.ErrNotCallable) {
			return nil, notCallable(hooks.OnBeforeRoute, file, v.DefinedAt)
		}
		if err != nil {
			return nil, err
		}
		before = fn
	}
	return route.NewRouter(catalog.PageRoutes(), before), nil
}
