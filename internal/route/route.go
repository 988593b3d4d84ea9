// Package route matches URLs against page routes.
package route

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind distinguishes route strings from route functions.
type Kind string

const (
	KindString   Kind = "STRING"
	KindFunction Kind = "FUNCTION"
)

// MatchFunc is a route function. It reports whether pathname belongs to the
// page and the route params extracted from it.
type MatchFunc func(pathname string) (params map[string]string, ok bool)

// Route is the declared route of one page.
type Route struct {
	Kind      Kind
	String    string
	Func      MatchFunc
	DefinedAt string
}

// PageRoute binds a route to a page ID.
type PageRoute struct {
	PageID string
	Route  Route
}

// FromString builds a string route.
func FromString(s, definedAt string) Route {
	return Route{Kind: KindString, String: s, DefinedAt: definedAt}
}

// FromFunc builds a function route.
func FromFunc(fn MatchFunc, definedAt string) Route {
	return Route{Kind: KindFunction, Func: fn, DefinedAt: definedAt}
}

// FromPattern builds a function route from a regular expression. Named
// capture groups become route params.
func FromPattern(pattern, definedAt string) (Route, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Route{}, fmt.Errorf("route pattern defined by %s: %w", definedAt, err)
	}
	names := re.SubexpNames()
	fn := func(pathname string) (map[string]string, bool) {
		m := re.FindStringSubmatch(pathname)
		if m == nil || m[0] != pathname {
			return nil, false
		}
		params := map[string]string{}
		for i, name := range names {
			if i > 0 && name != "" {
				params[name] = m[i]
			}
		}
		return params, true
	}
	return FromFunc(fn, definedAt), nil
}

// isParam reports whether a route segment is a parameter.
func isParam(seg string) bool { return strings.HasPrefix(seg, "@") }

func isWildcard(seg string) bool { return seg == "*" }

// StaticURL returns the URL of a route string that contains neither
// parameters nor wildcards.
func StaticURL(routeString string) (string, bool) {
	if !strings.HasPrefix(routeString, "/") {
		return "", false
	}
	for _, seg := range strings.Split(routeString, "/") {
		if isParam(seg) || strings.Contains(seg, "*") {
			return "", false
		}
	}
	return routeString, true
}

// Static reports whether r can be enumerated without routing.
func (r Route) Static() bool {
	if r.Kind != KindString {
		return false
	}
	_, ok := StaticURL(r.String)
	return ok
}

// matchString matches pathname against a route string.
func matchString(routeString, pathname string) (map[string]string, bool) {
	rs := splitPath(routeString)
	ps := splitPath(pathname)
	params := map[string]string{}
	for i, seg := range rs {
		if isWildcard(seg) && i == len(rs)-1 {
			params["*"] = strings.Join(ps[min(i, len(ps)):], "/")
			return params, true
		}
		if i >= len(ps) {
			return nil, false
		}
		switch {
		case isParam(seg):
			params[seg[1:]] = ps[i]
		case seg != ps[i]:
			return nil, false
		}
	}
	if len(ps) != len(rs) {
		return nil, false
	}
	return params, true
}

func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// precedence ranks a string route. Higher wins.
func precedence(routeString string) (static, staticSegs, params int) {
	segs := splitPath(routeString)
	static = 1
	for _, s := range segs {
		switch {
		case isParam(s), isWildcard(s):
			static = 0
			params++
		default:
			staticSegs++
		}
	}
	return static, staticSegs, params
}
