package prerender

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
	"git.home.luguber.info/inful/prerender/internal/hooks"
	"git.home.luguber.info/inful/prerender/internal/logfields"
	"git.home.luguber.info/inful/prerender/internal/page"
	"git.home.luguber.info/inful/prerender/internal/registry"
)

// stageTransformHook lets the global transform hook replace the working set.
func stageTransformHook(ctx context.Context, rs *runState) error {
	h, err := findTransformHook(ctx, rs)
	if err != nil || h == nil {
		return err
	}
	msgPrefix := fmt.Sprintf("The %s() hook defined by %s", h.Name, h.FilePath)

	in := make([]*page.Context, len(rs.pageContexts))
	for i, pc := range rs.pageContexts {
		pc.URLOriginalBeforeHook = pc.URLOriginal
		in[i] = pc.Clone()
	}

	result, err := h.Transform(ctx, hooks.TransformInput{PageContexts: in})
	if err != nil {
		return hookFailed(err, *h)
	}
	pcs, changed, err := hooks.NormalizeTransformResult(result, h.FilePath, h.Name, func(msg string) {
		rs.warner.warn(msg, logfields.HookFile(h.FilePath))
	})
	if err != nil || !changed {
		return err
	}

	for _, pc := range pcs {
		if pc.Fields == nil {
			pc.Fields = map[string]any{}
		}
		if u, ok := pc.Fields["url"].(string); ok && u != "" {
			rs.warner.warn(msgPrefix+" provided pageContext.url but it should provide pageContext.urlOriginal instead",
				logfields.HookFile(h.FilePath))
			pc.URLOriginal = u
		}
		delete(pc.Fields, "url")
		if !strings.HasPrefix(pc.URLOriginal, "/") {
			return errors.UsageError(fmt.Sprintf(
				"%s returned a page context whose urlOriginal `%s` doesn't start with `/`: every page context should have a urlOriginal such as `/about`",
				msgPrefix, pc.URLOriginal)).
				WithContext("hook", string(h.Name)).
				WithContext("hook_file", h.FilePath).
				WithContext("url", pc.URLOriginal).Build()
		}

		if pc.URLOriginal != pc.URLOriginalBeforeHook {
			pc.URLModifiedByHook = h.Ref()
		}
		pc.ComputeURLProps()
	}
	rs.logger.Debug("Transform hook replaced page contexts",
		logfields.Hook(string(h.Name)), logfields.HookFile(h.FilePath),
		logfields.Count(len(pcs)))
	rs.pageContexts = pcs
	return nil
}

// findTransformHook returns the global onPrerenderStart hook when the
// project has page configs, else the single legacy onBeforePrerender
// export of a `_default.page` file. It returns nil when neither exists.
func findTransformHook(ctx context.Context, rs *runState) (*hooks.Hook, error) {
	if len(rs.catalog.PageConfigs()) > 0 {
		v, ok := rs.catalog.GlobalConfig().Values[registry.ConfigOnPrerenderStart]
		if !ok || v.Value == nil {
			return nil, nil
		}
		name := hooks.OnPrerenderStart
		res, err := rs.hooks.Transform(name, v.Value, v.DefinedAt)
		if stdErrors.Is(err, hooks.ErrNotCallable) {
			return nil, notCallable(name, res.FilePath, v.DefinedAt)
		}
		if err != nil {
			return nil, err
		}
		return &hooks.Hook{Generation: hooks.GenerationCurrent, Name: name, FilePath: res.FilePath, Transform: res.Transform}, nil
	}

	var withHook []*registry.PageFile
	for _, f := range rs.catalog.PageFiles() {
		if !f.HasExport(registry.ExportOnBeforePrerender) {
			continue
		}
		if f.FileType == registry.FileTypeClient {
			return nil, errors.UsageError(fmt.Sprintf(
				"%s (which is a `.page.client` file) has `export { onBeforePrerender }` but it is only allowed in `.page.server` or `.page` files",
				f.FilePath)).WithContext("file", f.FilePath).Build()
		}
		if !f.IsDefaultPageFile {
			return nil, errors.UsageError(fmt.Sprintf(
				"%s has `export { onBeforePrerender }` but it is only allowed in `_default.page.` files", f.FilePath)).
				WithContext("file", f.FilePath).Build()
		}
		withHook = append(withHook, f)
	}
	if len(withHook) == 0 {
		return nil, nil
	}
	if len(withHook) > 1 {
		return nil, errors.UsageError(
			"There can be only one `onBeforePrerender()` hook: define it in a single `_default.page` file").
			WithContext("file", withHook[0].FilePath).Build()
	}
	f := withHook[0]
	if err := f.Load(ctx); err != nil {
		return nil, err
	}
	name := hooks.OnBeforePrerender
	res, err := rs.hooks.Transform(name, f.Exports()[registry.ExportOnBeforePrerender], f.FilePath)
	if stdErrors.Is(err, hooks.ErrNotCallable) {
		return nil, notCallable(name, f.FilePath, f.FilePath)
	}
	if err != nil {
		return nil, err
	}
	return &hooks.Hook{Generation: hooks.GenerationLegacy, Name: name, FilePath: res.FilePath, Transform: res.Transform}, nil
}
