package prerender

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/prerender/internal/logfields"
)

// stageValidate warns about excluded pages that a hook pre-rendered anyway
// and about pages that nothing pre-rendered.
func stageValidate(_ context.Context, rs *runState) error {
	rs.warnContradictions()
	rs.warnMissingPages()
	return nil
}

func (rs *runState) warnContradictions() {
	for _, pageID := range rs.catalog.AllPageIDs() {
		pc, ok := rs.rendered[pageID]
		if !ok || pc.ProvidedByHook == nil {
			continue
		}
		ex, excluded := rs.excluded(pageID)
		if !excluded {
			continue
		}
		hook := pc.ProvidedByHook
		rs.warner.warn(fmt.Sprintf(
			"The %s() hook defined by %s returns the URL `%s`, while %s sets the config `%s` to `%v`. This is contradictory: either don't set the config `%s` to `%v` or remove the URL `%s` from the list of URLs to be pre-rendered.",
			hook.HookName, hook.HookFilePath, pc.URLOriginal, ex.definedAt, ex.configName, ex.configValue,
			ex.configName, ex.configValue, pc.URLOriginal),
			logfields.PageID(pageID), logfields.HookFile(hook.HookFilePath))
	}
}

func (rs *runState) warnMissingPages() {
	if rs.partial {
		return
	}
	current := len(rs.catalog.PageConfigs()) > 0
	hookName := "prerender"
	pageAt := func(id string) string { return fmt.Sprintf("`%s.page.*`", id) }
	if current {
		hookName = "onBeforePrerenderStart"
		pageAt = func(id string) string { return "defined at " + id }
	}
	for _, pageID := range rs.catalog.AllPageIDs() {
		if _, ok := rs.rendered[pageID]; ok {
			continue
		}
		if _, excluded := rs.excluded(pageID); excluded {
			continue
		}
		if rs.catalog.IsErrorPage(pageID) {
			continue
		}
		rs.warner.warn(fmt.Sprintf(
			"Cannot pre-render page %s because it has a non-static route, and no %s() hook returned (an) URL(s) matching the page's route. Either use a %s() hook to pre-render the page, or use the option `prerender.partial` to suppress this warning",
			pageAt(pageID), hookName, hookName), logfields.PageID(pageID))
	}
}
