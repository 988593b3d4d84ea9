package render

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
	"git.home.luguber.info/inful/prerender/internal/page"
	"git.home.luguber.info/inful/prerender/internal/registry"
	"git.home.luguber.info/inful/prerender/internal/route"
)

func newGolden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
}

func catalog(t *testing.T, root string, withError bool, layout string) *registry.Catalog {
	t.Helper()
	b := registry.NewBuilder(root).
		PageConfig(registry.NewPageConfig("/pages/about", route.FromString("/about", ""), map[string]registry.ConfigValue{
			registry.ExportPage:         {Value: "# About\n\nHello {{.URLOriginal}}\n"},
			registry.ExportTitle:        {Value: "About"},
			registry.ExportPassToClient: {Value: []any{"title"}},
		})).
		PageConfig(registry.NewPageConfig("/pages/login", route.FromString("/login", ""), map[string]registry.ConfigValue{
			registry.ExportPage: {Value: `{{redirect "/sign-in"}}`},
		})).
		PageConfig(registry.NewPageConfig("/pages/gone", route.FromString("/gone", ""), map[string]registry.ConfigValue{
			registry.ExportPage: {Value: `{{notFound}}`},
		})).
		PageConfig(registry.NewPageConfig("/pages/product/@id", route.FromString("/product/@id", ""), map[string]registry.ConfigValue{
			registry.ExportPage: {Value: "Product {{.RouteParams.id}}"},
		}))
	if withError {
		b.PageConfig(registry.NewErrorPageConfig("/pages/_error", map[string]registry.ConfigValue{
			registry.ExportPage: {Value: "# Page not found\n"},
		}))
	}
	if layout != "" {
		b.Layout(layout)
	}
	c, err := b.Build()
	require.NoError(t, err)
	return c
}

func TestRenderPageGolden(t *testing.T) {
	e, err := NewEngine(catalog(t, t.TempDir(), false, ""))
	require.NoError(t, err)

	pc := page.New("/about", nil)
	pc.PageID = "/pages/about"
	res, err := e.RenderPage(context.Background(), pc)
	require.NoError(t, err)
	assert.Nil(t, res.PageContextJSON)
	assert.Equal(t, "About", res.Title)
	assert.Same(t, pc, res.PageContext)

	newGolden(t).Assert(t, "about", []byte(res.DocumentHTML))
}

func TestRenderPageSerializesContextForClientRouting(t *testing.T) {
	e, err := NewEngine(catalog(t, t.TempDir(), false, ""))
	require.NoError(t, err)

	pc := page.New("/about", nil)
	pc.PageID = "/pages/about"
	pc.UsesClientRouter = true
	res, err := e.RenderPage(context.Background(), pc)
	require.NoError(t, err)
	require.NotNil(t, res.PageContextJSON)

	var got map[string]any
	require.NoError(t, json.Unmarshal(res.PageContextJSON, &got))
	assert.Equal(t, "/pages/about", got["pageId"])
	assert.Equal(t, "/about", got["urlOriginal"])
	assert.Equal(t, "About", got["title"])

	newGolden(t).Assert(t, "about_client_routing", []byte(res.DocumentHTML))
}

func TestRenderPageRouteParams(t *testing.T) {
	e, err := NewEngine(catalog(t, t.TempDir(), false, ""))
	require.NoError(t, err)

	pc := page.New("/product/42", nil)
	pc.PageID = "/pages/product/@id"
	pc.RouteParams["id"] = "42"
	res, err := e.RenderPage(context.Background(), pc)
	require.NoError(t, err)
	assert.Contains(t, res.DocumentHTML, "<p>Product 42</p>")
	assert.Equal(t, "Product", res.Title)
}

func TestRenderPageAbort(t *testing.T) {
	e, err := NewEngine(catalog(t, t.TempDir(), false, ""))
	require.NoError(t, err)

	for url, want := range map[string]*AbortError{
		"/login": {Call: `redirect("/sign-in")`, Caller: "redirect()"},
		"/gone":  {Call: "notFound()", Caller: "notFound()"},
	} {
		pc := page.New(url, nil)
		pc.PageID = "/pages" + url
		_, err := e.RenderPage(context.Background(), pc)
		require.Error(t, err)
		ae, ok := IsAbort(err)
		require.True(t, ok, "expected abort for %s, got %v", url, err)
		assert.Equal(t, want, ae)
	}
}

func TestRenderPageMissingBody(t *testing.T) {
	e, err := NewEngine(catalog(t, t.TempDir(), false, ""))
	require.NoError(t, err)

	pc := page.New("/x", nil)
	pc.PageID = "/pages/x"
	pc.Exports = map[string]any{}
	_, err = e.RenderPage(context.Background(), pc)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryRender))
}

func TestRenderNotFound(t *testing.T) {
	e, err := NewEngine(catalog(t, t.TempDir(), false, ""))
	require.NoError(t, err)
	res, err := e.RenderNotFound(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, res)

	e, err = NewEngine(catalog(t, t.TempDir(), true, ""))
	require.NoError(t, err)
	res, err = e.RenderNotFound(context.Background(), map[string]any{"lang": "en"})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.PageContext.Is404)
	assert.Nil(t, res.PageContextJSON)
	assert.Equal(t, "Error", res.Title)
	assert.Contains(t, res.DocumentHTML, "<h1>Page not found</h1>")
}

func TestCustomLayout(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pages"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pages", "_layout.html"),
		[]byte(`<html><head><title>{{.Title}} | Site</title></head><body><main>{{.Body}}</main></body></html>`), 0o644))

	e, err := NewEngine(catalog(t, root, false, "/pages/_layout.html"))
	require.NoError(t, err)
	pc := page.New("/about", nil)
	pc.PageID = "/pages/about"
	res, err := e.RenderPage(context.Background(), pc)
	require.NoError(t, err)
	assert.Equal(t, "About | Site", res.Title)
	assert.Contains(t, res.DocumentHTML, "<main><h1>About</h1>")
}
