// Package hooks models the user hooks that feed a prerender run and
// normalizes what they return.
//
// Two hook generations coexist. Legacy hooks are exports of `.page.*`
// files; current hooks are per-page or global config values. Both resolve
// to the same Hook value before they are invoked.
package hooks

import (
	"context"
	stdErrors "errors"

	"git.home.luguber.info/inful/prerender/internal/page"
)

// Generation tags the design generation a hook was declared with.
type Generation string

const (
	GenerationLegacy  Generation = "legacy"
	GenerationCurrent Generation = "current"
)

// Name is a hook name as shown to users.
type Name string

const (
	// OnBeforePrerenderStart provides extra URLs (current generation).
	OnBeforePrerenderStart Name = "onBeforePrerenderStart"
	// Prerender provides extra URLs (legacy `.page.server` export).
	Prerender Name = "prerender"
	// OnPrerenderStart transforms the whole URL list (current generation, global).
	OnPrerenderStart Name = "onPrerenderStart"
	// OnBeforePrerender transforms the whole URL list (legacy `_default.page` export).
	OnBeforePrerender Name = "onBeforePrerender"
	// OnBeforeRoute may override routing (current generation, global).
	OnBeforeRoute Name = "onBeforeRoute"
)

// ProvideFunc is a "provide extra URLs" hook.
type ProvideFunc func(ctx context.Context) (any, error)

// TransformInput is passed to a transform hook.
type TransformInput struct {
	PageContexts []*page.Context `json:"pageContexts"`
}

// TransformResult is the typed return value of a transform hook.
type TransformResult struct {
	PageContexts []*page.Context
}

// TransformFunc is a "transform all URLs" hook.
type TransformFunc func(ctx context.Context, in TransformInput) (any, error)

// Hook is a resolved hook of either generation. Exactly one of Provide and
// Transform is set.
type Hook struct {
	Generation Generation
	Name       Name
	FilePath   string
	Provide    ProvideFunc
	Transform  TransformFunc
}

// Ref returns the provenance marker for URLs contributed by h.
func (h Hook) Ref() *page.HookRef {
	return &page.HookRef{HookFilePath: h.FilePath, HookName: string(h.Name)}
}

// ErrNotCallable is returned by the resolver when a hook value is neither a
// Go function nor a reference to a hook file.
var ErrNotCallable = stdErrors.New("hook value is not callable")
