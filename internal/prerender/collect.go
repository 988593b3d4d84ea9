package prerender

import (
	"context"
	stdErrors "errors"
	"fmt"
	"sort"
	"sync"

	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
	"git.home.luguber.info/inful/prerender/internal/hooks"
	"git.home.luguber.info/inful/prerender/internal/logfields"
	"git.home.luguber.info/inful/prerender/internal/page"
	"git.home.luguber.info/inful/prerender/internal/registry"
)

// stageCollectHookURLs calls every "provide extra URLs" hook of both
// generations and registers the URLs they return.
func stageCollectHookURLs(ctx context.Context, rs *runState) error {
	found, err := findProvideHooks(ctx, rs)
	if err != nil {
		return err
	}
	return forEach(ctx, rs.limiter, found, func(ctx context.Context, h hooks.Hook) error {
		result, err := h.Provide(ctx)
		if err != nil {
			return hookFailed(err, h)
		}
		entries, err := hooks.NormalizeProvideResult(result, h.FilePath, h.Name)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := rs.registerHookURL(h, e); err != nil {
				return err
			}
		}
		rs.logger.Debug("Hook provided URLs",
			logfields.Hook(string(h.Name)), logfields.HookFile(h.FilePath), logfields.Count(len(entries)))
		return nil
	})
}

// findProvideHooks loads the hooks declared by page configs
// (onBeforePrerenderStart) and by legacy `.page.server` files (prerender).
func findProvideHooks(ctx context.Context, rs *runState) ([]hooks.Hook, error) {
	var (
		mu    sync.Mutex
		found []hooks.Hook
	)
	add := func(h hooks.Hook) {
		mu.Lock()
		defer mu.Unlock()
		found = append(found, h)
	}

	err := forEach(ctx, rs.limiter, rs.catalog.PageConfigs(), func(ctx context.Context, cfg *registry.PageConfig) error {
		loaded, err := rs.catalog.LoadConfigValues(ctx, cfg.PageID)
		if err != nil {
			return err
		}
		v, ok := loaded.Value(registry.ConfigOnBeforePrerenderStart)
		if !ok || v.Value == nil {
			return nil
		}
		name := hooks.OnBeforePrerenderStart
		res, err := rs.hooks.Provide(name, v.Value, v.DefinedAt)
		if stdErrors.Is(err, hooks.ErrNotCallable) {
			return notCallable(name, res.FilePath, v.DefinedAt)
		}
		if err != nil {
			return err
		}
		add(hooks.Hook{Generation: hooks.GenerationCurrent, Name: name, FilePath: res.FilePath, Provide: res.Provide})
		return nil
	})
	if err != nil {
		return nil, err
	}

	var legacy []*registry.PageFile
	for _, f := range rs.catalog.PageFiles() {
		if !f.HasExport(registry.ExportPrerender) {
			continue
		}
		if f.FileType != registry.FileTypeServer {
			return nil, errors.UsageError(fmt.Sprintf(
				"%s (which is a `%s` file) has `export { prerender }` but it is only allowed in `.page.server` files",
				f.FilePath, f.FileType)).WithContext("file", f.FilePath).Build()
		}
		legacy = append(legacy, f)
	}
	err = forEach(ctx, rs.limiter, legacy, func(ctx context.Context, f *registry.PageFile) error {
		if err := f.Load(ctx); err != nil {
			return err
		}
		value := f.Exports()[registry.ExportPrerender]
		if value == nil || value == false {
			return nil
		}
		res, err := rs.hooks.Provide(hooks.Prerender, value, f.FilePath)
		if stdErrors.Is(err, hooks.ErrNotCallable) {
			return errors.UsageError(fmt.Sprintf("`export { prerender }` of %s should be a function.", f.FilePath)).
				WithContext("file", f.FilePath).Build()
		}
		if err != nil {
			return err
		}
		add(hooks.Hook{Generation: hooks.GenerationLegacy, Name: hooks.Prerender, FilePath: res.FilePath, Provide: res.Provide})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].FilePath < found[j].FilePath })
	return found, nil
}

// registerHookURL adds a hook-provided URL to the working set. The
// duplicate check and the append happen under one lock.
func (rs *runState) registerHookURL(h hooks.Hook, e hooks.Entry) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, existing := range rs.pageContexts {
		if !page.SameURL(existing.URLOriginal, e.URL) {
			continue
		}
		prev := existing.ProvidedByHook
		if prev == nil {
			return errors.InternalError(fmt.Sprintf("URL %s registered without a hook before static routes", e.URL)).Build()
		}
		var twice string
		if prev.HookFilePath == h.FilePath {
			twice = fmt.Sprintf("twice by the %s() hook (%s)", h.Name, h.FilePath)
		} else {
			twice = fmt.Sprintf("twice: by the %s() hook (%s) as well as by the %s() hook (%s)",
				h.Name, h.FilePath, prev.HookName, prev.HookFilePath)
		}
		return errors.UsageError(fmt.Sprintf(
			"URL `%s` provided %s. Make sure to provide the URL only once instead.", e.URL, twice)).
			WithContext("hook", string(h.Name)).
			WithContext("hook_file", h.FilePath).
			WithContext("url", e.URL).Build()
	}
	pc := rs.newPageContext(e.URL)
	pc.ProvidedByHook = h.Ref()
	if e.PageContext != nil {
		pc.AlreadyProvidedByHook = true
		pc.Merge(e.PageContext)
		pc.ComputeURLProps()
	}
	rs.pageContexts = append(rs.pageContexts, pc)
	return nil
}

func notCallable(name hooks.Name, hookFile, definedAt string) error {
	if hookFile == "" {
		hookFile = definedAt
	}
	return errors.UsageError(fmt.Sprintf("The %s() hook defined by %s should be a function.", name, hookFile)).
		WithContext("hook", string(name)).
		WithContext("hook_file", hookFile).Build()
}

// hookFailed attributes an error returned by user code to its hook.
// Classified errors already name the hook and pass through.
func hookFailed(err error, h hooks.Hook) error {
	if _, ok := errors.AsClassified(err); ok {
		return err
	}
	return errors.WrapError(err, errors.CategoryHook,
		fmt.Sprintf("The %s() hook defined by %s failed", h.Name, h.FilePath)).
		WithContext("hook", string(h.Name)).
		WithContext("hook_file", h.FilePath).Build()
}
