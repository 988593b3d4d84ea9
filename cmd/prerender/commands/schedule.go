package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
	"git.home.luguber.info/inful/prerender/internal/logfields"
	"git.home.luguber.info/inful/prerender/internal/schedule"
)

// ScheduleCmd implements the 'schedule' command.
type ScheduleCmd struct {
	RunFlags `embed:""`
	Every    time.Duration `required:"" help:"Interval between runs (e.g. 10m)"`
}

func (s *ScheduleCmd) Run(_ *Global, root *CLI) error {
	cfg, logger, err := loadAndApply(root, s.RunFlags)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, err := schedule.New(logger)
	if err != nil {
		return err
	}
	adapter := errors.NewCLIErrorAdapter(root.Verbose, logger)
	_, err = sched.Every(ctx, s.Every, "prerender", func(ctx context.Context) {
		if _, err := runOnce(ctx, cfg, trigger("schedule"), logger); err != nil && ctx.Err() == nil {
			logger.Error("Scheduled run failed", logfields.Error(err), "detail", adapter.FormatError(err))
		}
	})
	if err != nil {
		return errors.UsageError(err.Error()).WithContext("flag", "--every").Build()
	}
	return sched.Run(ctx)
}
