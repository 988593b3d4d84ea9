package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"git.home.luguber.info/inful/prerender/internal/prerender"
	"git.home.luguber.info/inful/prerender/internal/registry"
	"git.home.luguber.info/inful/prerender/internal/route"
)

// PagesCmd implements the 'pages' command.
type PagesCmd struct{}

func (p *PagesCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	root.applyLogging(cfg)
	catalog, err := registry.Discover(cfg.Root, cfg.Pages, cfg.ClientRouting)
	if err != nil {
		return err
	}
	excluded, err := prerender.Exclusions(context.Background(), catalog)
	if err != nil {
		return err
	}

	routes := make(map[string]route.Route, len(catalog.PageRoutes()))
	for _, r := range catalog.PageRoutes() {
		routes[r.PageID] = r.Route
	}

	tw := tabwriter.NewWriter(g.out(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PAGE ID\tROUTE\tGENERATION\tPRERENDER")
	for _, id := range catalog.AllPageIDs() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id, describeRoute(routes[id], catalog.IsErrorPage(id)),
			generation(catalog, id), prerenderState(excluded, id))
	}
	return tw.Flush()
}

func describeRoute(r route.Route, errorPage bool) string {
	switch {
	case errorPage:
		return "(error page)"
	case r.Kind == route.KindFunction:
		return "(route function)"
	case r.String == "":
		return "-"
	default:
		return r.String
	}
}

func generation(catalog *registry.Catalog, pageID string) string {
	if _, ok := catalog.PageConfig(pageID); ok {
		return "config"
	}
	return "legacy"
}

func prerenderState(excluded map[string]string, pageID string) string {
	if reason, ok := excluded[pageID]; ok {
		return "no (" + reason + ")"
	}
	return "yes"
}
