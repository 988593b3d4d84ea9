// Package render turns a routed page context into an HTML document.
//
// A page body is a text/template executed against the page context, then
// converted from Markdown with goldmark and placed into an html/template
// layout.
package render

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	texttemplate "text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
	"git.home.luguber.info/inful/prerender/internal/logfields"
	"git.home.luguber.info/inful/prerender/internal/page"
	"git.home.luguber.info/inful/prerender/internal/registry"
)

//go:embed templates/layout.html
var defaultLayout string

// PageSource is the part of the page registry the engine reads.
type PageSource interface {
	Root() string
	LayoutFile() string
	ErrorPageID() string
	LoadServerSide(ctx context.Context, pageID string) (*registry.ServerSide, error)
}

// Result is a rendered document.
type Result struct {
	DocumentHTML string
	// PageContextJSON is nil when the page does not use client routing.
	PageContextJSON []byte
	Title           string
	PageContext     *page.Context
}

// Engine renders pages. It is safe for concurrent use.
type Engine struct {
	pages  PageSource
	md     goldmark.Markdown
	layout *htmltemplate.Template
	lang   string
}

// NewEngine creates an engine, loading the project layout if one exists.
func NewEngine(pages PageSource) (*Engine, error) {
	src := defaultLayout
	name := "layout.html"
	if lf := pages.LayoutFile(); lf != "" {
		data, err := os.ReadFile(filepath.Join(pages.Root(), filepath.FromSlash(strings.TrimPrefix(lf, "/"))))
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryRender, "reading layout").
				WithContext("file", lf).Fatal().Build()
		}
		src, name = string(data), lf
	}
	layout, err := htmltemplate.New(name).Parse(src)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRender, "parsing layout").
			WithContext("file", name).Fatal().Build()
	}
	return &Engine{
		pages: pages,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
		layout: layout,
		lang:   "en",
	}, nil
}

var pageFuncs = texttemplate.FuncMap{
	"redirect": redirect,
	"notFound": notFound,
}

// RenderPage renders a routed page context. If the dispatcher has not
// attached the page exports yet they are loaded here.
func (e *Engine) RenderPage(ctx context.Context, pc *page.Context) (*Result, error) {
	if pc.Exports == nil {
		ss, err := e.pages.LoadServerSide(ctx, pc.PageID)
		if err != nil {
			return nil, err
		}
		pc.Exports = ss.Exports
	}
	body, ok := pc.Exports[registry.ExportPage].(string)
	if !ok {
		return nil, errors.RenderError(fmt.Sprintf("page %s doesn't define a Page", pc.PageID)).
			WithContext("page_id", pc.PageID).Build()
	}

	tmpl, err := texttemplate.New(pc.PageID).Funcs(pageFuncs).Option("missingkey=zero").Parse(body)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRender, fmt.Sprintf("parsing page %s", pc.PageID)).
			WithContext("page_id", pc.PageID).Build()
	}
	var mdSrc bytes.Buffer
	if err := tmpl.Execute(&mdSrc, pc); err != nil {
		if _, ok := IsAbort(err); ok {
			return nil, err
		}
		return nil, errors.WrapError(err, errors.CategoryRender, fmt.Sprintf("rendering page %s", pc.PageID)).
			WithContext("page_id", pc.PageID).Build()
	}
	var bodyHTML bytes.Buffer
	if err := e.md.Convert(mdSrc.Bytes(), &bodyHTML); err != nil {
		return nil, errors.WrapError(err, errors.CategoryRender, fmt.Sprintf("converting page %s", pc.PageID)).
			WithContext("page_id", pc.PageID).Build()
	}

	var ctxJSON []byte
	if pc.UsesClientRouter && !pc.Is404 {
		ctxJSON, err = serializePageContext(pc)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryRender, "serializing page context").
				WithContext("page_id", pc.PageID).Build()
		}
	}

	var doc bytes.Buffer
	err = e.layout.Execute(&doc, map[string]any{
		"Lang":            e.lang,
		"Title":           pageTitle(pc),
		"Body":            htmltemplate.HTML(bodyHTML.String()), // #nosec G203 -- page sources are trusted project files
		"PageContextJSON": htmltemplate.JS(ctxJSON),             // #nosec G203 -- produced by json.Marshal
		"PageContext":     pc,
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRender, "executing layout").
			WithContext("page_id", pc.PageID).Build()
	}

	title, err := documentTitle(doc.String())
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRender, fmt.Sprintf("page %s produced invalid HTML", pc.PageID)).
			WithContext("page_id", pc.PageID).Build()
	}
	slog.Debug("Rendered page", logfields.PageID(pc.PageID), logfields.URL(pc.URLOriginal))
	return &Result{DocumentHTML: doc.String(), PageContextJSON: ctxJSON, Title: title, PageContext: pc}, nil
}

// RenderNotFound renders the error page as a 404 document. It returns nil
// when the project has no error page.
func (e *Engine) RenderNotFound(ctx context.Context, init map[string]any) (*Result, error) {
	errorPageID := e.pages.ErrorPageID()
	if errorPageID == "" {
		return nil, nil
	}
	ss, err := e.pages.LoadServerSide(ctx, errorPageID)
	if err != nil {
		return nil, err
	}
	pc := page.New("/404", init)
	pc.PageID = errorPageID
	pc.Is404 = true
	pc.Exports = ss.Exports
	return e.RenderPage(ctx, pc)
}

// passToClient lists the fields copied into the serialized context.
func passToClient(pc *page.Context) []string {
	var names []string
	switch v := pc.Exports[registry.ExportPassToClient].(type) {
	case []string:
		names = v
	case []any:
		for _, n := range v {
			if s, ok := n.(string); ok {
				names = append(names, s)
			}
		}
	}
	return names
}

func serializePageContext(pc *page.Context) ([]byte, error) {
	out := map[string]any{
		"pageId":      pc.PageID,
		"routeParams": pc.RouteParams,
		"urlOriginal": pc.URLOriginal,
	}
	for _, name := range passToClient(pc) {
		if v, ok := pc.Fields[name]; ok {
			out[name] = v
		} else if v, ok := pc.Exports[name]; ok {
			out[name] = v
		}
	}
	return json.Marshal(out)
}

var titleCaser = cases.Title(language.English)

// pageTitle prefers an explicit title and falls back to the page ID.
func pageTitle(pc *page.Context) string {
	if s, ok := pc.Fields[registry.ExportTitle].(string); ok && s != "" {
		return s
	}
	if s, ok := pc.Exports[registry.ExportTitle].(string); ok && s != "" {
		return s
	}
	id := pc.PageID
	for strings.HasPrefix(path.Base(id), "@") {
		id = path.Dir(id)
	}
	base := path.Base(id)
	if base == "index" || base == "pages" || base == "/" || base == "." {
		base = "home"
	}
	base = strings.TrimPrefix(base, "_")
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return titleCaser.String(base)
}

// documentTitle parses the document and returns its <title> text. A
// document without <html> and <body> elements is rejected.
func documentTitle(doc string) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", err
	}
	var title string
	var hasBody bool
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if n.FirstChild != nil && title == "" {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "body":
				hasBody = n.FirstChild != nil
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	if !hasBody {
		return "", fmt.Errorf("document has an empty body")
	}
	return title, nil
}
