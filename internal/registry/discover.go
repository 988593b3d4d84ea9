package registry

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
	"git.home.luguber.info/inful/prerender/internal/frontmatter"
	"git.home.luguber.info/inful/prerender/internal/route"
)

const (
	pageSourceFile = "+Page.md"
	dirConfigFile  = "+config.yaml"
	layoutFile     = "_layout.html"
	defaultPage    = "_default"
)

// legacyFileRe matches `<name>.page[.server|.client|.route].<md|yaml|yml>`.
var legacyFileRe = regexp.MustCompile(`^(.+?)(\.page(?:\.server|\.client|\.route)?)\.(md|ya?ml)$`)

// Discover scans root/pagesDir and builds the catalog.
//
// A directory containing `+Page.md` is a page; `+config.yaml` and other
// `+<name>.*` files in it and its parents define config values. Files named
// `<name>.page.*` are legacy page files.
func Discover(root, pagesDir string, clientRouting bool) (*Catalog, error) {
	d := &discovery{
		root:      root,
		pagesRoot: "/" + strings.Trim(filepath.ToSlash(pagesDir), "/"),
		dirValues: map[string]map[string]ConfigValue{},
		pageDirs:  map[string]string{},
		builder:   NewBuilder(root).PagesDir(pagesDir).ClientRouting(clientRouting),
	}
	base := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(d.pagesRoot, "/")))
	if _, err := os.Stat(base); err != nil {
		return nil, errors.WrapError(err, errors.CategoryRegistry,
			fmt.Sprintf("pages directory %s not found", d.pagesRoot)).Fatal().Build()
	}
	err := filepath.WalkDir(base, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if strings.HasPrefix(entry.Name(), ".") && p != base {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		return d.visit("/" + filepath.ToSlash(rel))
	})
	if err != nil {
		if _, ok := errors.AsClassified(err); ok {
			return nil, err
		}
		return nil, errors.WrapError(err, errors.CategoryRegistry, "scanning pages").Fatal().Build()
	}
	if err := d.buildPageConfigs(); err != nil {
		return nil, err
	}
	return d.builder.Build()
}

type discovery struct {
	root      string
	pagesRoot string
	dirValues map[string]map[string]ConfigValue
	pageDirs  map[string]string // dir -> +Page.md path
	builder   *Builder
}

func (d *discovery) abs(p string) string {
	return filepath.Join(d.root, filepath.FromSlash(strings.TrimPrefix(p, "/")))
}

func (d *discovery) visit(file string) error {
	dir, name := path.Split(file)
	dir = strings.TrimSuffix(dir, "/")
	switch {
	case name == pageSourceFile:
		d.pageDirs[dir] = file
	case name == dirConfigFile:
		return d.readDirConfig(dir, file)
	case strings.HasPrefix(name, "+"):
		key := strings.TrimPrefix(name, "+")
		key = strings.TrimSuffix(key, path.Ext(key))
		d.setDirValue(dir, key, ConfigValue{Value: "./" + name, DefinedAt: file})
	case name == layoutFile && dir == d.pagesRoot:
		d.builder.Layout(file)
	default:
		if m := legacyFileRe.FindStringSubmatch(name); m != nil {
			return d.addLegacyFile(dir, file, m[1], FileType(m[2]), m[3])
		}
	}
	return nil
}

func (d *discovery) setDirValue(dir, key string, v ConfigValue) {
	if d.dirValues[dir] == nil {
		d.dirValues[dir] = map[string]ConfigValue{}
	}
	d.dirValues[dir][key] = v
}

func (d *discovery) readDirConfig(dir, file string) error {
	data, err := os.ReadFile(d.abs(file))
	if err != nil {
		return err
	}
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return errors.WrapError(err, errors.CategoryRegistry, fmt.Sprintf("invalid YAML in %s", file)).
			WithContext("file", file).Fatal().Build()
	}
	for k, v := range values {
		d.setDirValue(dir, k, ConfigValue{Value: v, DefinedAt: file})
	}
	return nil
}

func (d *discovery) buildPageConfigs() error {
	for dir, values := range d.dirValues {
		for name, v := range values {
			if globalConfigNames[name] && dir != d.pagesRoot {
				return errors.UsageError(fmt.Sprintf(
					"%s defines the global config `%s` which can only be defined in %s/", v.DefinedAt, name, d.pagesRoot)).
					WithContext("file", v.DefinedAt).Build()
			}
		}
	}
	for name, v := range d.dirValues[d.pagesRoot] {
		if globalConfigNames[name] {
			d.builder.Global(name, v.Value, v.DefinedAt)
		}
	}

	dirs := sortedKeys(d.pageDirs)
	for _, dir := range dirs {
		values := map[string]ConfigValue{}
		for _, anc := range d.ancestors(dir) {
			for name, v := range d.dirValues[anc] {
				if globalConfigNames[name] || (nonInheritable[name] && anc != dir) {
					continue
				}
				values[name] = v
			}
		}
		pageID := dir
		var pc *PageConfig
		if isErrorPageID(pageID) {
			pc = NewErrorPageConfig(pageID, values)
		} else {
			rt := route.FromString(FilesystemRoute(pageID, d.pagesRoot), dir)
			if v, ok := values[ConfigRoute]; ok {
				var err error
				if rt, err = routeFromValue(v.Value, v.DefinedAt); err != nil {
					return err
				}
			}
			pc = NewPageConfig(pageID, rt, values)
		}
		source := d.pageDirs[dir]
		pc.lazy = append(pc.lazy, lazyValues{definedAt: source, load: d.markdownLoader(source)})
		pc.loaded = false
		d.builder.PageConfig(pc)
	}
	return nil
}

// ancestors lists directories from the pages root down to dir.
func (d *discovery) ancestors(dir string) []string {
	out := []string{d.pagesRoot}
	rel := strings.TrimPrefix(strings.TrimPrefix(dir, d.pagesRoot), "/")
	if rel == "" {
		return out
	}
	cur := d.pagesRoot
	for _, seg := range strings.Split(rel, "/") {
		cur = cur + "/" + seg
		out = append(out, cur)
	}
	return out
}

func (d *discovery) markdownLoader(file string) func(context.Context) (map[string]any, error) {
	return func(ctx context.Context) (map[string]any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(d.abs(file))
		if err != nil {
			return nil, err
		}
		fields, body, err := frontmatter.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		fields[ExportPage] = string(body)
		return fields, nil
	}
}

func (d *discovery) yamlLoader(file string) func(context.Context) (map[string]any, error) {
	return func(ctx context.Context) (map[string]any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(d.abs(file))
		if err != nil {
			return nil, err
		}
		out := map[string]any{}
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		if out == nil {
			out = map[string]any{}
		}
		return out, nil
	}
}

func (d *discovery) addLegacyFile(dir, file, base string, ft FileType, ext string) error {
	f := &PageFile{FilePath: file, Dir: dir, FileType: ft}
	if base == defaultPage {
		f.IsDefaultPageFile = true
	} else {
		f.PageID = dir + "/" + base
	}
	if ext == "md" {
		f.loader = d.markdownLoader(file)
	} else {
		f.loader = d.yamlLoader(file)
	}
	// Export names are known up front; the values are only read by Load.
	exports, err := f.loader(context.Background())
	if err != nil {
		return errors.WrapError(err, errors.CategoryRegistry, fmt.Sprintf("reading %s", file)).
			WithContext("file", file).Fatal().Build()
	}
	f.ExportNames = sortedKeys(exports)
	if ft == FileTypeRoute {
		f.exports = exports
		f.loaded = true
	}
	d.builder.PageFile(f)
	return nil
}
