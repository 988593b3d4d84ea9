// Package output maps pre-rendered URLs to files and writes them to a sink.
package output

import "strings"

// Extensions of the files written per URL.
const (
	ExtHTML        = ".html"
	ExtPageContext = ".pageContext.json"
)

// FilePathForURL returns the root-relative file for a URL, with a leading
// slash. Without noExtraDir, non-root URLs become a directory with an
// index file: /about -> /about/index.html; with it, /about -> /about.html.
// URLs ending in a slash always get an index file.
func FilePathForURL(url, ext string, noExtraDir bool) string {
	url = pathOnly(url)
	switch {
	case strings.HasSuffix(url, "/"):
		return url + "index" + ext
	case noExtraDir:
		return url + ext
	default:
		return url + "/index" + ext
	}
}

// ContextFilePathForURL returns the file holding the serialized page
// context of a URL: /about -> /about/index.pageContext.json.
func ContextFilePathForURL(url string) string {
	return FilePathForURL(url, ExtPageContext, false)
}

func pathOnly(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	if url == "" {
		return "/"
	}
	return url
}
