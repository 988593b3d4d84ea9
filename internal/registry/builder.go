package registry

// Builder assembles a catalog in code. Discover uses it for the filesystem
// layout; tests use it directly.
type Builder struct {
	root         string
	pagesDir     string
	layout       string
	pageConfigs  []*PageConfig
	pageFiles    []*PageFile
	global       map[string]ConfigValue
	clientRouter bool
}

// NewBuilder starts an empty catalog rooted at root.
func NewBuilder(root string) *Builder {
	return &Builder{root: root, pagesDir: "pages", global: map[string]ConfigValue{}}
}

// PagesDir sets the pages directory used for filesystem routes.
func (b *Builder) PagesDir(dir string) *Builder {
	b.pagesDir = dir
	return b
}

// Layout sets the root-relative path of the HTML layout.
func (b *Builder) Layout(file string) *Builder {
	b.layout = file
	return b
}

// PageConfig adds a page declared with `+` config files.
func (b *Builder) PageConfig(pc *PageConfig) *Builder {
	b.pageConfigs = append(b.pageConfigs, pc)
	return b
}

// PageFile adds a legacy `.page.*` file.
func (b *Builder) PageFile(f *PageFile) *Builder {
	b.pageFiles = append(b.pageFiles, f)
	return b
}

// Global sets a build-wide config value.
func (b *Builder) Global(name string, value any, definedAt string) *Builder {
	b.global[name] = ConfigValue{Value: value, DefinedAt: definedAt}
	return b
}

// ClientRouting sets the build-wide client routing default.
func (b *Builder) ClientRouting(enabled bool) *Builder {
	b.clientRouter = enabled
	return b
}

// Build indexes the pages and returns the catalog.
func (b *Builder) Build() (*Catalog, error) {
	c, err := newCatalog(b.root, b.pagesDir)
	if err != nil {
		return nil, err
	}
	c.layout = b.layout
	c.pageConfigs = b.pageConfigs
	c.pageFiles = b.pageFiles
	c.clientRouter = b.clientRouter
	for k, v := range b.global {
		c.global.Values[k] = v
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return c, nil
}
