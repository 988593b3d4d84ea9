package hooks

import (
	"fmt"
	"sort"

	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
	"git.home.luguber.info/inful/prerender/internal/page"
)

// Entry is one URL returned by a "provide extra URLs" hook. PageContext is
// nil when the hook did not supply one.
type Entry struct {
	URL         string
	PageContext map[string]any
}

// NormalizeProvideResult validates a hook result and flattens it to entries.
// Accepted shapes: a URL string, an object {url, pageContext?}, or a list
// of either.
func NormalizeProvideResult(result any, hookFile string, hookName Name) ([]Entry, error) {
	var elems []any
	switch v := result.(type) {
	case []any:
		elems = v
	case []string:
		for _, s := range v {
			elems = append(elems, s)
		}
	case []Entry:
		for _, e := range v {
			elems = append(elems, e)
		}
	case []map[string]any:
		for _, m := range v {
			elems = append(elems, m)
		}
	default:
		elems = []any{result}
	}
	out := make([]Entry, 0, len(elems))
	for _, el := range elems {
		e, err := normalizeProvideElement(el, hookFile, hookName)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func normalizeProvideElement(el any, hookFile string, hookName Name) (Entry, error) {
	returned := fmt.Sprintf("The %s() hook defined by %s returned", hookName, hookFile)
	invalid := returned + " an invalid value"
	hint := fmt.Sprintf("Make sure your %s() hook returns an object `{ url, pageContext }` or an array of such objects.", hookName)
	usage := func(msg string) error {
		return errors.UsageError(msg).
			WithContext("hook", string(hookName)).
			WithContext("hook_file", hookFile).Build()
	}

	var obj map[string]any
	switch v := el.(type) {
	case string:
		obj = map[string]any{"url": v, "pageContext": nil}
	case Entry:
		obj = map[string]any{"url": v.URL, "pageContext": v.PageContext}
	case *Entry:
		if v == nil {
			return Entry{}, usage(fmt.Sprintf("%s. %s", invalid, hint))
		}
		obj = map[string]any{"url": v.URL, "pageContext": v.PageContext}
	case map[string]any:
		obj = v
	default:
		return Entry{}, usage(fmt.Sprintf("%s. %s", invalid, hint))
	}

	rawURL, ok := obj["url"]
	if !ok {
		return Entry{}, usage(fmt.Sprintf("%s: `url` is missing. %s", invalid, hint))
	}
	u, ok := rawURL.(string)
	if !ok {
		return Entry{}, usage(fmt.Sprintf("%s: `url` should be a string (but `typeof url === %q`).", invalid, typeName(rawURL)))
	}
	if len(u) == 0 || u[0] != '/' {
		return Entry{}, usage(fmt.Sprintf("%s a URL with an invalid value `%s` which doesn't start with `/`. Make sure each URL starts with `/`.", returned, u))
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k != "url" && k != "pageContext" {
			return Entry{}, usage(fmt.Sprintf("%s: unexpected object key `%s`. %s", invalid, k, hint))
		}
	}
	entry := Entry{URL: u}
	switch pc := obj["pageContext"].(type) {
	case nil:
	case map[string]any:
		entry.PageContext = pc
	default:
		return Entry{}, usage(fmt.Sprintf("%s an invalid `pageContext` value: make sure `pageContext` is an object.", returned))
	}
	return entry, nil
}

// typeName mirrors the names hook authors see in their own tooling.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	default:
		return "object"
	}
}

// NormalizeTransformResult validates the value returned by a transform hook.
// A nil result means "no change" and yields changed=false. The legacy
// `{ globalContext: { prerenderPageContexts } }` shape is accepted; warn is
// called once with the deprecation message.
func NormalizeTransformResult(result any, hookFile string, hookName Name, warn func(string)) (pcs []*page.Context, changed bool, err error) {
	errPrefix := fmt.Sprintf("The %s() hook exported by %s", hookName, hookFile)
	rightUsage := func() error {
		return errors.UsageError(fmt.Sprintf("%s should return `nil` or `{ prerenderContext: { pageContexts } }`", errPrefix)).
			WithContext("hook", string(hookName)).
			WithContext("hook_file", hookFile).Build()
	}

	switch v := result.(type) {
	case nil:
		return nil, false, nil
	case *TransformResult:
		if v == nil {
			return nil, false, nil
		}
		return clonePageContexts(v.PageContexts), true, nil
	case TransformResult:
		return clonePageContexts(v.PageContexts), true, nil
	case map[string]any:
		return normalizeTransformMap(v, errPrefix, warn, rightUsage)
	default:
		return nil, false, rightUsage()
	}
}

func normalizeTransformMap(m map[string]any, errPrefix string, warn func(string), rightUsage func() error) ([]*page.Context, bool, error) {
	if gc, ok := m["globalContext"]; ok {
		gcm, isMap := gc.(map[string]any)
		if len(m) != 1 || !isMap {
			return nil, false, rightUsage()
		}
		list, isList := gcm["prerenderPageContexts"].([]any)
		if !isList {
			return nil, false, rightUsage()
		}
		if warn != nil {
			warn(fmt.Sprintf("%s returns `{ globalContext: { prerenderPageContexts } }` but the return value has been renamed to `{ prerenderContext: { pageContexts } }`", errPrefix))
		}
		m = map[string]any{"prerenderContext": map[string]any{"pageContexts": list}}
	}
	for k := range m {
		if k != "prerenderContext" {
			return nil, false, rightUsage()
		}
	}
	pctx, ok := m["prerenderContext"].(map[string]any)
	if !ok {
		return nil, false, rightUsage()
	}
	var out []*page.Context
	switch list := pctx["pageContexts"].(type) {
	case []any:
		for _, el := range list {
			switch pc := el.(type) {
			case *page.Context:
				out = append(out, pc.Clone())
			case map[string]any:
				decoded, err := page.FromMap(pc)
				if err != nil {
					return nil, false, rightUsage()
				}
				out = append(out, decoded)
			default:
				return nil, false, rightUsage()
			}
		}
	case []*page.Context:
		out = clonePageContexts(list)
	default:
		return nil, false, rightUsage()
	}
	return out, true, nil
}

func clonePageContexts(in []*page.Context) []*page.Context {
	out := make([]*page.Context, 0, len(in))
	for _, pc := range in {
		if pc != nil {
			out = append(out, pc.Clone())
		}
	}
	return out
}
