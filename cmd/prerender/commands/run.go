package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/prerender/internal/prerender"
)

// RunCmd implements the default 'run' command.
type RunCmd struct {
	RunFlags `embed:""`
}

func (r *RunCmd) Run(_ *Global, root *CLI) error {
	cfg, logger, err := loadAndApply(root, r.RunFlags)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := runOnce(ctx, cfg, trigger("run"), logger)
	if err != nil {
		return err
	}
	if report.Outcome == prerender.OutcomeCanceled {
		return ctx.Err()
	}
	if !r.NoForceExit {
		stop()
		prerender.ForceExit()
	}
	return nil
}
