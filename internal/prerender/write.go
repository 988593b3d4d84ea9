package prerender

import (
	"context"

	"git.home.luguber.info/inful/prerender/internal/output"
)

// stageWrite persists the HTML document of every artifact and, when the
// renderer serialized one, its page context.
func stageWrite(ctx context.Context, rs *runState) error {
	var files []output.File
	for _, a := range rs.artifacts {
		html := output.NewFile(rs.outDir, a.URLOriginal, output.KindHTML, []byte(a.HTML), a.NoExtraDir)
		html.PageID = a.PageID
		html.PageContext = a.PageContext
		files = append(files, html)
		if a.PageContextJSON != nil {
			cf := output.NewFile(rs.outDir, a.URLOriginal, output.KindContext, a.PageContextJSON, a.NoExtraDir)
			cf.PageID = a.PageID
			cf.PageContext = a.PageContext
			files = append(files, cf)
		}
	}
	return forEach(ctx, rs.limiter, files, func(ctx context.Context, f output.File) error {
		if err := rs.sink.Write(ctx, f); err != nil {
			return err
		}
		rs.report.fileWritten(f.URLOriginal, f.RelPath)
		rs.observer.OnFileWritten(f)
		return nil
	})
}
