// Package registry is the read-only catalog of pages, their routes and
// their config, built once before a prerender run.
package registry

import (
	"context"
	"fmt"
	"maps"
	"path"
	"slices"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
	"git.home.luguber.info/inful/prerender/internal/frontmatter"
	"git.home.luguber.info/inful/prerender/internal/route"
)

const serverSideCacheSize = 512

// Catalog is the page registry. It is immutable once built; only the lazy
// loading of file-backed values mutates internal caches.
type Catalog struct {
	root         string
	pagesDir     string
	layout       string
	pageConfigs  []*PageConfig
	global       GlobalConfig
	pageFiles    []*PageFile
	clientRouter bool
	routes       []route.PageRoute
	pageIDs      []string
	errorPages   map[string]bool
	cache        *lru.Cache[string, *ServerSide]
}

func newCatalog(root, pagesDir string) (*Catalog, error) {
	cache, err := lru.New[string, *ServerSide](serverSideCacheSize)
	if err != nil {
		return nil, err
	}
	return &Catalog{
		root:       root,
		pagesDir:   pagesDir,
		global:     GlobalConfig{Values: map[string]ConfigValue{}},
		errorPages: map[string]bool{},
		cache:      cache,
	}, nil
}

// index computes page IDs and routes. Called once after all pages are added.
func (c *Catalog) index() error {
	ids := map[string]bool{}
	for _, pc := range c.pageConfigs {
		ids[pc.PageID] = true
		if pc.IsErrorPage {
			c.errorPages[pc.PageID] = true
			continue
		}
		c.routes = append(c.routes, route.PageRoute{PageID: pc.PageID, Route: pc.Route})
	}
	legacyRoutes := map[string]route.Route{}
	for _, f := range c.pageFiles {
		if f.IsDefaultPageFile {
			continue
		}
		ids[f.PageID] = true
		if isErrorPageID(f.PageID) {
			c.errorPages[f.PageID] = true
		}
		if f.FileType == FileTypeRoute {
			rt, err := routeFromValue(f.Exports()["route"], f.FilePath)
			if err != nil {
				return err
			}
			legacyRoutes[f.PageID] = rt
		}
	}
	legacyIDs := map[string]bool{}
	for _, f := range c.pageFiles {
		if f.IsDefaultPageFile || legacyIDs[f.PageID] || c.errorPages[f.PageID] {
			continue
		}
		legacyIDs[f.PageID] = true
		rt, ok := legacyRoutes[f.PageID]
		if !ok {
			rt = route.FromString(FilesystemRoute(f.PageID, c.pagesDir), f.PageID)
		}
		c.routes = append(c.routes, route.PageRoute{PageID: f.PageID, Route: rt})
	}
	c.pageIDs = sortedKeys(ids)
	sort.SliceStable(c.routes, func(i, j int) bool { return c.routes[i].PageID < c.routes[j].PageID })
	return nil
}

// Root returns the project root directory.
func (c *Catalog) Root() string { return c.root }

// LayoutFile returns the root-relative path of the HTML layout, if any.
func (c *Catalog) LayoutFile() string { return c.layout }

// PageConfigs returns the pages declared with `+` config files.
func (c *Catalog) PageConfigs() []*PageConfig { return c.pageConfigs }

// GlobalConfig returns the build-wide config values.
func (c *Catalog) GlobalConfig() GlobalConfig { return c.global }

// PageFiles returns all legacy `.page.*` files.
func (c *Catalog) PageFiles() []*PageFile { return c.pageFiles }

// PageRoutes returns the routes of all pages except error pages.
func (c *Catalog) PageRoutes() []route.PageRoute { return c.routes }

// AllPageIDs returns every page ID, sorted.
func (c *Catalog) AllPageIDs() []string { return c.pageIDs }

// IsErrorPage reports whether pageID is the error page.
func (c *Catalog) IsErrorPage(pageID string) bool { return c.errorPages[pageID] }

// ErrorPageID returns the error page ID, or "" if there is none.
func (c *Catalog) ErrorPageID() string {
	ids := sortedKeys(c.errorPages)
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// UsesClientRouter is the build-wide client routing default.
func (c *Catalog) UsesClientRouter() bool { return c.clientRouter }

// PageConfig returns the config of a page declared with `+` files.
func (c *Catalog) PageConfig(pageID string) (*PageConfig, bool) {
	for _, pc := range c.pageConfigs {
		if pc.PageID == pageID {
			return pc, true
		}
	}
	return nil, false
}

// PageFilesServerSide returns the legacy files loaded on the server for
// pageID: the page's own `.page` and `.page.server` files first, then the
// default files that apply to it, nearest directory first. Unknown page IDs
// get no files.
func (c *Catalog) PageFilesServerSide(pageID string) []*PageFile {
	if !slices.Contains(c.pageIDs, pageID) {
		return nil
	}
	var own, defaults []*PageFile
	for _, f := range c.pageFiles {
		if f.FileType != FileTypePage && f.FileType != FileTypeServer {
			continue
		}
		switch {
		case f.IsDefaultPageFile && appliesTo(f.Dir, pageID):
			defaults = append(defaults, f)
		case f.PageID == pageID:
			own = append(own, f)
		}
	}
	sort.SliceStable(own, func(i, j int) bool { return own[i].FileType > own[j].FileType })
	sort.SliceStable(defaults, func(i, j int) bool {
		if len(defaults[i].Dir) != len(defaults[j].Dir) {
			return len(defaults[i].Dir) > len(defaults[j].Dir)
		}
		return defaults[i].FileType > defaults[j].FileType
	})
	return append(own, defaults...)
}

func appliesTo(dir, pageID string) bool {
	return dir == "/" || strings.HasPrefix(pageID, strings.TrimSuffix(dir, "/")+"/")
}

// LoadConfigValues loads the file-backed config values of a page.
func (c *Catalog) LoadConfigValues(ctx context.Context, pageID string) (*PageConfig, error) {
	pc, ok := c.PageConfig(pageID)
	if !ok {
		return nil, errors.RegistryError(fmt.Sprintf("unknown page %s", pageID)).WithContext("page_id", pageID).Build()
	}
	if err := pc.load(ctx); err != nil {
		return nil, errors.WrapError(err, errors.CategoryRegistry,
			fmt.Sprintf("loading config of %s", pageID)).WithContext("page_id", pageID).Build()
	}
	return pc, nil
}

// LoadServerSide loads the exports needed to render pageID. Results are
// cached for the lifetime of the catalog.
func (c *Catalog) LoadServerSide(ctx context.Context, pageID string) (*ServerSide, error) {
	if ss, ok := c.cache.Get(pageID); ok {
		return ss, nil
	}
	ss := &ServerSide{PageID: pageID, Exports: map[string]any{}}
	if _, ok := c.PageConfig(pageID); ok {
		pc, err := c.LoadConfigValues(ctx, pageID)
		if err != nil {
			return nil, err
		}
		files := map[string]bool{}
		for name, v := range pc.Values() {
			ss.Exports[name] = v.Value
			if v.DefinedAt != "" {
				files[v.DefinedAt] = true
			}
		}
		ss.Files = sortedKeys(files)
	} else {
		files := c.PageFilesServerSide(pageID)
		if len(files) == 0 {
			return nil, errors.RegistryError(fmt.Sprintf("unknown page %s", pageID)).WithContext("page_id", pageID).Build()
		}
		// Lowest priority first so that page files override defaults.
		for i := len(files) - 1; i >= 0; i-- {
			f := files[i]
			if err := f.Load(ctx); err != nil {
				return nil, errors.WrapError(err, errors.CategoryRegistry,
					fmt.Sprintf("loading %s", f.FilePath)).WithContext("file", f.FilePath).Build()
			}
			maps.Copy(ss.Exports, f.Exports())
			ss.Files = append(ss.Files, f.FilePath)
		}
		sort.Strings(ss.Files)
	}
	fp, err := fingerprintExports(ss.Exports)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRegistry,
			fmt.Sprintf("fingerprinting %s", pageID)).Build()
	}
	ss.Fingerprint = fp
	c.cache.Add(pageID, ss)
	return ss, nil
}

// Sources lists the files that declare pageID without loading them.
func (c *Catalog) Sources(pageID string) []string {
	files := map[string]bool{}
	if pc, ok := c.PageConfig(pageID); ok {
		for _, v := range pc.Values() {
			if v.DefinedAt != "" {
				files[v.DefinedAt] = true
			}
		}
		for _, lv := range pc.lazy {
			files[lv.definedAt] = true
		}
	}
	for _, f := range c.pageFiles {
		if f.PageID == pageID {
			files[f.FilePath] = true
		}
	}
	return sortedKeys(files)
}

// fingerprintExports hashes the plain-data exports with the page body.
func fingerprintExports(exports map[string]any) (string, error) {
	fields := map[string]any{}
	for k, v := range exports {
		if k == ExportPage || !isPlainData(v) {
			continue
		}
		fields[k] = v
	}
	body, _ := exports[ExportPage].(string)
	return frontmatter.Fingerprint(fields, []byte(body))
}

func isPlainData(v any) bool {
	switch t := v.(type) {
	case nil, string, bool, int, int64, float64:
		return true
	case []string:
		return true
	case []any:
		for _, e := range t {
			if !isPlainData(e) {
				return false
			}
		}
		return true
	case map[string]any:
		for _, e := range t {
			if !isPlainData(e) {
				return false
			}
		}
		return true
	}
	return false
}

// FilesystemRoute derives the route of a page from its ID: the pages
// directory, `index` segments and `(group)` segments are dropped.
func FilesystemRoute(pageID, pagesDir string) string {
	rel := strings.TrimPrefix(pageID, "/")
	if pagesDir != "" {
		prefix := strings.Trim(pagesDir, "/")
		if rel == prefix {
			rel = ""
		} else {
			rel = strings.TrimPrefix(rel, prefix+"/")
		}
	}
	var segs []string
	for _, s := range strings.Split(rel, "/") {
		if s == "" || s == "index" || (strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")) {
			continue
		}
		segs = append(segs, s)
	}
	return "/" + strings.Join(segs, "/")
}

func isErrorPageID(pageID string) bool {
	return path.Base(pageID) == "_error"
}

// routeFromValue parses a `route` value: a route string or {pattern: re}.
func routeFromValue(v any, definedAt string) (route.Route, error) {
	switch t := v.(type) {
	case string:
		if !strings.HasPrefix(t, "/") {
			return route.Route{}, errors.UsageError(fmt.Sprintf(
				"The route string `%s` defined by %s should start with `/`", t, definedAt)).
				WithContext("file", definedAt).Build()
		}
		return route.FromString(t, definedAt), nil
	case route.MatchFunc:
		return route.FromFunc(t, definedAt), nil
	case func(string) (map[string]string, bool):
		return route.FromFunc(t, definedAt), nil
	case map[string]any:
		if p, ok := t["pattern"].(string); ok && len(t) == 1 {
			rt, err := route.FromPattern(p, definedAt)
			if err != nil {
				return route.Route{}, errors.WrapError(err, errors.CategoryUsage,
					fmt.Sprintf("Invalid route pattern defined by %s", definedAt)).Fatal().Build()
			}
			return rt, nil
		}
	}
	return route.Route{}, errors.UsageError(fmt.Sprintf(
		"The route defined by %s should be a route string or `{ pattern }`", definedAt)).
		WithContext("file", definedAt).Build()
}
