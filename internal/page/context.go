package page

import (
	"encoding/json"
	"fmt"
	"maps"
	"sort"
)

// HookRef identifies the hook that supplied or rewrote a URL.
type HookRef struct {
	HookFilePath string `json:"hookFilePath"`
	HookName     string `json:"hookName"`
}

// Context is the record carried for one URL from collection to write.
//
// Fields holds arbitrary data merged in from the initial context template,
// hook-provided overrides and transform hooks. Everything else is owned by
// the pipeline.
type Context struct {
	URLOriginal string
	PageID      string
	RouteParams map[string]string

	// ProvidedByHook is nil when the URL was derived from a static route.
	ProvidedByHook        *HookRef
	URLOriginalBeforeHook string
	URLModifiedByHook     *HookRef
	AlreadyProvidedByHook bool

	UsesClientRouter bool
	NoExtraDir       bool
	Is404            bool

	// Exports holds the loaded server-side page exports (body, layout, title).
	Exports map[string]any
	Fields  map[string]any

	URL URLProps
}

// New creates a context for urlOriginal with init merged into Fields.
func New(urlOriginal string, init map[string]any) *Context {
	pc := &Context{
		URLOriginal: urlOriginal,
		RouteParams: map[string]string{},
		Fields:      deepCopyMap(init),
	}
	if pc.Fields == nil {
		pc.Fields = map[string]any{}
	}
	pc.ComputeURLProps()
	return pc
}

// ComputeURLProps recomputes the URL-derived properties from URLOriginal.
func (pc *Context) ComputeURLProps() {
	pc.URL = computeURLProps(pc.URLOriginal)
}

// Merge copies fields into the context. Known keys update the matching
// struct fields; the rest land in Fields.
func (pc *Context) Merge(fields map[string]any) {
	for k, v := range fields {
		if !pc.setKnown(k, v) {
			pc.Fields[k] = deepCopyValue(v)
		}
	}
}

// Get returns a field value by key.
func (pc *Context) Get(key string) any {
	return pc.Fields[key]
}

// Clone returns a deep copy of the context.
func (pc *Context) Clone() *Context {
	if pc == nil {
		return nil
	}
	out := *pc
	out.RouteParams = maps.Clone(pc.RouteParams)
	out.Fields = deepCopyMap(pc.Fields)
	out.Exports = maps.Clone(pc.Exports)
	if pc.ProvidedByHook != nil {
		h := *pc.ProvidedByHook
		out.ProvidedByHook = &h
	}
	if pc.URLModifiedByHook != nil {
		h := *pc.URLModifiedByHook
		out.URLModifiedByHook = &h
	}
	out.URL.Search = maps.Clone(pc.URL.Search)
	out.URL.Segments = append([]string(nil), pc.URL.Segments...)
	return &out
}

// JSON keys of pipeline-owned fields. Underscored keys are internal.
const (
	keyURLOriginal           = "urlOriginal"
	keyPageID                = "pageId"
	keyRouteParams           = "routeParams"
	keyIs404                 = "is404"
	keyProvidedByHook        = "_providedByHook"
	keyURLOriginalBeforeHook = "_urlOriginalBeforeHook"
	keyURLModifiedByHook     = "_urlOriginalModifiedByHook"
	keyAlreadyProvided       = "_pageContextAlreadyProvidedByOnPrerenderHook"
	keyUsesClientRouter      = "_usesClientRouter"
	keyNoExtraDir            = "_noExtraDir"
)

// MarshalJSON inlines Fields next to the pipeline-owned keys. Exports and
// computed URL properties are not serialized.
func (pc *Context) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(pc.Fields)+8)
	maps.Copy(out, pc.Fields)
	out[keyURLOriginal] = pc.URLOriginal
	if pc.PageID != "" {
		out[keyPageID] = pc.PageID
	}
	if len(pc.RouteParams) > 0 {
		out[keyRouteParams] = pc.RouteParams
	}
	if pc.Is404 {
		out[keyIs404] = true
	}
	if pc.ProvidedByHook != nil {
		out[keyProvidedByHook] = pc.ProvidedByHook
	}
	if pc.URLOriginalBeforeHook != "" {
		out[keyURLOriginalBeforeHook] = pc.URLOriginalBeforeHook
	}
	if pc.URLModifiedByHook != nil {
		out[keyURLModifiedByHook] = pc.URLModifiedByHook
	}
	if pc.AlreadyProvidedByHook {
		out[keyAlreadyProvided] = true
	}
	if pc.UsesClientRouter {
		out[keyUsesClientRouter] = true
	}
	if pc.NoExtraDir {
		out[keyNoExtraDir] = true
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (pc *Context) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := FromMap(raw)
	if err != nil {
		return err
	}
	*pc = *decoded
	return nil
}

// FromMap builds a context from a generic decoded object, as returned by
// data-file or executable hooks. A missing urlOriginal is left empty.
func FromMap(m map[string]any) (*Context, error) {
	pc := &Context{RouteParams: map[string]string{}, Fields: map[string]any{}}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := m[k]
		if pc.setKnown(k, v) {
			continue
		}
		switch k {
		case keyProvidedByHook:
			pc.ProvidedByHook = hookRefFrom(v)
		case keyURLModifiedByHook:
			pc.URLModifiedByHook = hookRefFrom(v)
		case keyURLOriginalBeforeHook:
			pc.URLOriginalBeforeHook, _ = v.(string)
		case keyAlreadyProvided:
			pc.AlreadyProvidedByHook, _ = v.(bool)
		case keyUsesClientRouter:
			pc.UsesClientRouter, _ = v.(bool)
		case keyNoExtraDir:
			pc.NoExtraDir, _ = v.(bool)
		default:
			pc.Fields[k] = deepCopyValue(v)
		}
	}
	pc.ComputeURLProps()
	return pc, nil
}

func (pc *Context) setKnown(k string, v any) bool {
	switch k {
	case keyURLOriginal:
		if s, ok := v.(string); ok {
			pc.URLOriginal = s
			return true
		}
		return false
	case keyPageID:
		pc.PageID, _ = v.(string)
		return true
	case keyRouteParams:
		pc.RouteParams = stringMap(v)
		return true
	case keyIs404:
		pc.Is404, _ = v.(bool)
		return true
	}
	return false
}

func hookRefFrom(v any) *HookRef {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	ref := &HookRef{}
	ref.HookFilePath, _ = m["hookFilePath"].(string)
	ref.HookName, _ = m["hookName"].(string)
	return ref
}

func stringMap(v any) map[string]string {
	out := map[string]string{}
	switch m := v.(type) {
	case map[string]string:
		maps.Copy(out, m)
	case map[string]any:
		for k, val := range m {
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
