package route

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/prerender/internal/page"
)

func TestStaticURL(t *testing.T) {
	cases := []struct {
		route  string
		url    string
		static bool
	}{
		{"/", "/", true},
		{"/about", "/about", true},
		{"/product/@id", "", false},
		{"/docs/*", "", false},
		{"about", "", false},
	}
	for _, c := range cases {
		got, ok := StaticURL(c.route)
		assert.Equal(t, c.static, ok, c.route)
		assert.Equal(t, c.url, got, c.route)
	}
}

func TestRouterPrecedence(t *testing.T) {
	patternRoute, err := FromPattern(`^/legacy/(?P<slug>[a-z]+)$`, "/pages/legacy/+route.yaml")
	require.NoError(t, err)
	r := NewRouter([]PageRoute{
		{PageID: "/pages/product", Route: FromString("/product/@id", "")},
		{PageID: "/pages/product-new", Route: FromString("/product/new", "")},
		{PageID: "/pages/docs", Route: FromString("/docs/*", "")},
		{PageID: "/pages/legacy", Route: patternRoute},
		{PageID: "/pages/index", Route: FromString("/", "")},
	}, nil)

	cases := []struct {
		url    string
		pageID string
		params map[string]string
	}{
		{"/product/new", "/pages/product-new", map[string]string{}},
		{"/product/42", "/pages/product", map[string]string{"id": "42"}},
		{"/docs/a/b", "/pages/docs", map[string]string{"*": "a/b"}},
		{"/legacy/abc", "/pages/legacy", map[string]string{"slug": "abc"}},
		{"/", "/pages/index", map[string]string{}},
		{"/missing", "", map[string]string{}},
	}
	for _, c := range cases {
		res, err := r.Route(context.Background(), page.New(c.url, nil))
		require.NoError(t, err)
		assert.Equal(t, c.pageID, res.PageID, c.url)
		assert.Equal(t, c.params, res.RouteParams, c.url)
		assert.False(t, res.ProvidedByOverride)
	}
}

func TestRouterBeforeRouteOverride(t *testing.T) {
	r := NewRouter([]PageRoute{{PageID: "/pages/about", Route: FromString("/about", "")}},
		func(_ context.Context, pc *page.Context) (*Result, error) {
			if pc.URLOriginal == "/about" {
				return &Result{}, nil
			}
			return nil, nil
		})

	res, err := r.Route(context.Background(), page.New("/about", nil))
	require.NoError(t, err)
	assert.Empty(t, res.PageID)
	assert.True(t, res.ProvidedByOverride)

	res, err = r.Route(context.Background(), page.New("/other", nil))
	require.NoError(t, err)
	assert.Empty(t, res.PageID)
	assert.False(t, res.ProvidedByOverride)
}

func TestFromPatternInvalid(t *testing.T) {
	_, err := FromPattern("(", "/pages/x/+route.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/pages/x/+route.yaml")
}
