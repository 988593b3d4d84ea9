package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/prerender/internal/config"
	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
	"git.home.luguber.info/inful/prerender/internal/logfields"
	"git.home.luguber.info/inful/prerender/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	RunFlags `embed:""`
	Debounce time.Duration `help:"Quiet period before a change triggers a run" default:"300ms"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, logger, err := loadAndApply(root, w.RunFlags)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adapter := errors.NewCLIErrorAdapter(root.Verbose, logger)
	run := func(ctx context.Context, trig string) {
		if _, err := runOnce(ctx, cfg, trig, logger); err != nil && ctx.Err() == nil {
			logger.Error("Run failed", logfields.Error(err), "detail", adapter.FormatError(err))
		}
	}

	run(ctx, trigger("watch"))

	watcher, err := watch.New(cfg.Root,
		watch.WithDebounce(w.Debounce),
		watch.WithIgnore(generatedPaths(cfg)...),
		watch.WithLogger(logger))
	if err != nil {
		return err
	}
	return watcher.Run(ctx, func(ctx context.Context) { run(ctx, trigger("watch (change)")) })
}

// generatedPaths are written by every run and must not trigger the next one.
func generatedPaths(cfg *config.Config) []string {
	paths := []string{cfg.OutputDir(), cfg.ResolvePath(cfg.Report), cfg.ResolvePath(cfg.Metrics.Textfile)}
	if history := cfg.ResolvePath(cfg.History); history != "" {
		paths = append(paths, history, history+"-journal", history+"-wal", history+"-shm")
	}
	return paths
}
