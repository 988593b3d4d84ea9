package page

import (
	"net/url"
	"strings"
)

// NormalizeURL collapses leading, trailing and duplicate slashes so that
// "/a", "a/", "//a//" all compare equal.
func NormalizeURL(u string) string {
	parts := strings.Split(u, "/")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return "/" + strings.Join(kept, "/")
}

// SameURL reports whether two URLs are equal after normalization.
func SameURL(a, b string) bool {
	return NormalizeURL(a) == NormalizeURL(b)
}

// URLProps are derived from URLOriginal and never serialized.
type URLProps struct {
	Pathname string
	Search   map[string]string
	Hash     string
	Segments []string
}

func computeURLProps(raw string) URLProps {
	props := URLProps{Pathname: raw, Search: map[string]string{}}
	u, err := url.Parse(raw)
	if err != nil {
		props.Segments = splitSegments(raw)
		return props
	}
	props.Pathname = u.Path
	if props.Pathname == "" {
		props.Pathname = "/"
	}
	props.Hash = u.Fragment
	for k, v := range u.Query() {
		if len(v) > 0 {
			props.Search[k] = v[len(v)-1]
		}
	}
	props.Segments = splitSegments(props.Pathname)
	return props
}

func splitSegments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
