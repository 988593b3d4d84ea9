package hooks

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
	"git.home.luguber.info/inful/prerender/internal/page"
)

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
}

func TestResolveGoFunc(t *testing.T) {
	r := NewResolver(t.TempDir(), nil)
	res, err := r.Provide(OnBeforePrerenderStart, ProvideFunc(func(context.Context) (any, error) { return "/a", nil }), "/pages/a/+config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/pages/a/+config.yaml", res.FilePath)
	out, err := res.Provide(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/a", out)
}

func TestResolveNotCallable(t *testing.T) {
	r := NewResolver(t.TempDir(), nil)
	_, err := r.Provide(OnBeforePrerenderStart, 42, "/pages/a/+config.yaml")
	assert.ErrorIs(t, err, ErrNotCallable)
	_, err = r.Provide(OnBeforePrerenderStart, "/about", "/pages/a/+config.yaml")
	assert.ErrorIs(t, err, ErrNotCallable)
}

func TestResolveDataFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pages", "blog", "urls.yaml"), "- /blog/one\n- url: /blog/two\n  pageContext:\n    title: Two\n", 0o644)

	r := NewResolver(root, nil)
	res, err := r.Provide(OnBeforePrerenderStart, "./urls.yaml", "/pages/blog/+config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/pages/blog/urls.yaml", res.FilePath)

	out, err := res.Provide(context.Background())
	require.NoError(t, err)
	entries, err := NormalizeProvideResult(out, res.FilePath, OnBeforePrerenderStart)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/blog/one", entries[0].URL)
	assert.Equal(t, "Two", entries[1].PageContext["title"])
}

func TestResolveDataFileCannotTransform(t *testing.T) {
	r := NewResolver(t.TempDir(), nil)
	res, err := r.Transform(OnPrerenderStart, "./list.json", "/pages/+config.yaml")
	assert.ErrorIs(t, err, ErrNotCallable)
	assert.Equal(t, "/pages/list.json", res.FilePath)
}

func TestResolveExecutableTransform(t *testing.T) {
	root := t.TempDir()
	script := `#!/bin/sh
cat > /dev/null
echo '{"prerenderContext":{"pageContexts":[{"urlOriginal":"/fr/about","locale":"fr"}]}}'
`
	writeFile(t, filepath.Join(root, "pages", "i18n.sh"), script, 0o755)

	r := NewResolver(root, nil)
	res, err := r.Transform(OnPrerenderStart, "./i18n.sh", "/pages/+config.yaml")
	require.NoError(t, err)

	out, err := res.Transform(context.Background(), TransformInput{PageContexts: []*page.Context{page.New("/about", nil)}})
	require.NoError(t, err)
	pcs, changed, err := NormalizeTransformResult(out, res.FilePath, OnPrerenderStart, nil)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, pcs, 1)
	assert.Equal(t, "/fr/about", pcs[0].URLOriginal)
}

func TestResolveExecutableFailure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pages", "urls.sh"), "#!/bin/sh\necho boom >&2\nexit 3\n", 0o755)

	r := NewResolver(root, nil)
	res, err := r.Provide(OnBeforePrerenderStart, "./urls.sh", "/pages/+config.yaml")
	require.NoError(t, err)
	_, err = res.Provide(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryHook))
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "/pages/urls.sh")
}

func TestResolveExecutableInvalidJSON(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pages", "urls.sh"), "#!/bin/sh\necho not-json\n", 0o755)

	r := NewResolver(root, nil)
	res, err := r.Provide(OnBeforePrerenderStart, "./urls.sh", "/pages/+config.yaml")
	require.NoError(t, err)
	_, err = res.Provide(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsUsage(err))
}

func TestResolveExecutableBeforeRoute(t *testing.T) {
	root := t.TempDir()
	script := `#!/bin/sh
if grep -q '"urlOriginal":"/legacy"' ; then
  echo '{"pageId":"/pages/about","routeParams":{"from":"legacy"}}'
fi
`
	writeFile(t, filepath.Join(root, "pages", "route.sh"), script, 0o755)

	r := NewResolver(root, nil)
	fn, file, err := r.BeforeRoute("./route.sh", "/pages/+config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/pages/route.sh", file)

	res, err := fn(context.Background(), page.New("/legacy", nil))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "/pages/about", res.PageID)
	assert.Equal(t, "legacy", res.RouteParams["from"])
	assert.True(t, res.ProvidedByOverride)

	res, err = fn(context.Background(), page.New("/other", nil))
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestResolveBeforeRouteNotCallable(t *testing.T) {
	r := NewResolver(t.TempDir(), nil)
	_, _, err := r.BeforeRoute(true, "/pages/+config.yaml")
	assert.ErrorIs(t, err, ErrNotCallable)
}
