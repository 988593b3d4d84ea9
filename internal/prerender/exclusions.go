package prerender

import (
	"context"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
	"git.home.luguber.info/inful/prerender/internal/logfields"
	"git.home.luguber.info/inful/prerender/internal/metrics"
	"git.home.luguber.info/inful/prerender/internal/registry"
)

// stageExclusions collects the pages that must not be pre-rendered: pages
// whose `prerender` config is false, and legacy pages whose first
// server-side file exporting doNotPrerender sets it to true.
func stageExclusions(ctx context.Context, rs *runState) error {
	for _, pc := range rs.catalog.PageConfigs() {
		v, ok := pc.Value(registry.ConfigPrerender)
		if !ok {
			continue
		}
		if b, isBool := v.Value.(bool); isBool && !b {
			rs.exclusions = append(rs.exclusions, exclusion{
				pageID:      pc.PageID,
				configName:  registry.ConfigPrerender,
				configValue: false,
				definedAt:   v.DefinedAt,
			})
		}
	}

	var flagged []*registry.PageFile
	for _, f := range rs.catalog.PageFiles() {
		if !f.HasExport(registry.ExportDoNotPrerender) {
			continue
		}
		if f.FileType == registry.FileTypeClient {
			return errors.UsageError(fmt.Sprintf(
				"%s (which is a `.page.client` file) has `export { doNotPrerender }` but it is only allowed in `.page.server` or `.page` files",
				f.FilePath)).WithContext("file", f.FilePath).Build()
		}
		flagged = append(flagged, f)
	}
	if err := forEach(ctx, rs.limiter, flagged, func(ctx context.Context, f *registry.PageFile) error {
		return f.Load(ctx)
	}); err != nil {
		return err
	}

	for _, pageID := range rs.catalog.AllPageIDs() {
		for _, f := range rs.catalog.PageFilesServerSide(pageID) {
			if !f.HasExport(registry.ExportDoNotPrerender) {
				continue
			}
			doNotPrerender, ok := f.Exports()[registry.ExportDoNotPrerender].(bool)
			if !ok {
				return errors.UsageError(fmt.Sprintf(
					"The `export { doNotPrerender }` value of %s should be `true` or `false`", f.FilePath)).
					WithContext("file", f.FilePath).Build()
			}
			if doNotPrerender {
				rs.exclusions = append(rs.exclusions, exclusion{
					pageID:      pageID,
					configName:  registry.ExportDoNotPrerender,
					configValue: true,
					definedAt:   f.FilePath,
				})
			}
			break
		}
	}
	rs.logger.Debug("Collected exclusions", logfields.Count(len(rs.exclusions)))
	return nil
}

// Exclusions returns the pages that a run would skip, keyed by page ID. The
// value names the config or export that excludes the page.
func Exclusions(ctx context.Context, catalog Catalog) (map[string]string, error) {
	rs := &runState{
		catalog: catalog,
		limiter: newLimiter(1, metrics.NoopRecorder{}),
		logger:  slog.New(slog.DiscardHandler),
	}
	if err := stageExclusions(ctx, rs); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rs.exclusions))
	for _, e := range rs.exclusions {
		out[e.pageID] = fmt.Sprintf("%s: %v (%s)", e.configName, e.configValue, e.definedAt)
	}
	return out, nil
}
