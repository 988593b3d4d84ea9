package registry

import (
	"context"
	"maps"
	"sort"
	"sync"

	"git.home.luguber.info/inful/prerender/internal/route"
)

// ConfigValue is a config value together with the file that defined it.
type ConfigValue struct {
	Value     any
	DefinedAt string
}

// lazyValues produces config values that require reading a file.
type lazyValues struct {
	definedAt string
	load      func(ctx context.Context) (map[string]any, error)
}

// PageConfig is a page declared with `+` config files.
type PageConfig struct {
	PageID      string
	IsErrorPage bool
	Route       route.Route

	mu     sync.Mutex
	values map[string]ConfigValue
	lazy   []lazyValues
	loaded bool
}

// NewPageConfig creates a page config with eager values.
func NewPageConfig(pageID string, rt route.Route, values map[string]ConfigValue) *PageConfig {
	return &PageConfig{PageID: pageID, Route: rt, values: cloneValues(values), loaded: true}
}

// NewErrorPageConfig creates the config of the error page.
func NewErrorPageConfig(pageID string, values map[string]ConfigValue) *PageConfig {
	return &PageConfig{PageID: pageID, IsErrorPage: true, values: cloneValues(values), loaded: true}
}

// Value returns a config value. Values backed by files are only visible
// after LoadConfigValues.
func (p *PageConfig) Value(name string) (ConfigValue, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[name]
	return v, ok
}

// Values returns a copy of all config values.
func (p *PageConfig) Values() map[string]ConfigValue {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneValues(p.values)
}

func (p *PageConfig) load(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return nil
	}
	for _, lv := range p.lazy {
		vals, err := lv.load(ctx)
		if err != nil {
			return err
		}
		for k, v := range vals {
			p.values[k] = ConfigValue{Value: v, DefinedAt: lv.definedAt}
		}
	}
	p.loaded = true
	return nil
}

// GlobalConfig holds config values that apply to the whole build.
type GlobalConfig struct {
	Values map[string]ConfigValue
}

// FileType is the kind of a legacy `.page.*` file.
type FileType string

const (
	FileTypePage   FileType = ".page"
	FileTypeServer FileType = ".page.server"
	FileTypeClient FileType = ".page.client"
	FileTypeRoute  FileType = ".page.route"
)

// PageFile is a legacy `.page.*` file. Default files (`_default.page.*`)
// have an empty PageID and apply to every page under Dir.
type PageFile struct {
	FilePath          string
	PageID            string
	Dir               string
	FileType          FileType
	IsDefaultPageFile bool
	ExportNames       []string

	loader  func(ctx context.Context) (map[string]any, error)
	mu      sync.Mutex
	exports map[string]any
	loaded  bool
}

// NewPageFile creates a page file whose exports are already known.
func NewPageFile(filePath, pageID, dir string, fileType FileType, exports map[string]any) *PageFile {
	f := &PageFile{
		FilePath:          filePath,
		PageID:            pageID,
		Dir:               dir,
		FileType:          fileType,
		IsDefaultPageFile: pageID == "",
		exports:           maps.Clone(exports),
		loaded:            true,
	}
	if f.exports == nil {
		f.exports = map[string]any{}
	}
	f.ExportNames = sortedKeys(f.exports)
	return f
}

// HasExport reports whether the file exports name.
func (f *PageFile) HasExport(name string) bool {
	for _, n := range f.ExportNames {
		if n == name {
			return true
		}
	}
	return false
}

// Load reads the file exports. It is safe to call more than once.
func (f *PageFile) Load(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loaded {
		return nil
	}
	exports, err := f.loader(ctx)
	if err != nil {
		return err
	}
	f.exports = exports
	f.loaded = true
	return nil
}

// Exports returns the loaded exports, or nil before Load.
func (f *PageFile) Exports() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loaded {
		return nil
	}
	return f.exports
}

// ServerSide is everything the render engine needs for one page.
type ServerSide struct {
	PageID      string
	Exports     map[string]any
	Files       []string
	Fingerprint string
}

func cloneValues(in map[string]ConfigValue) map[string]ConfigValue {
	out := make(map[string]ConfigValue, len(in))
	maps.Copy(out, in)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
