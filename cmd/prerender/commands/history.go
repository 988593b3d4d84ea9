package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/prerender/internal/eventstore"
	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	RunID string `name:"run" help:"Show a single run by ID"`
	Limit int    `help:"Maximum number of runs to show" default:"20"`
	JSON  bool   `name:"json" help:"Print JSON instead of a table"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	root.applyLogging(cfg)
	path := cfg.ResolvePath(cfg.History)
	if path == "" {
		return errors.ConfigError("no run history: set history in the config file").Build()
	}
	store, err := eventstore.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	projection := eventstore.NewRunHistoryProjection(store, h.Limit)
	if err := projection.Rebuild(context.Background()); err != nil {
		return err
	}

	var runs []*eventstore.RunSummary
	if h.RunID != "" {
		run, ok := projection.GetRun(h.RunID)
		if !ok {
			return errors.HistoryError(fmt.Sprintf("run %s not found", h.RunID)).Build()
		}
		runs = []*eventstore.RunSummary{run}
	} else {
		runs = projection.GetHistory()
	}

	if h.JSON {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	tw := tabwriter.NewWriter(g.out(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN ID\tSTARTED\tSTATUS\tPAGES\tFILES\tWARNINGS\tDURATION\tTRIGGER")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n", r.RunID, r.StartedAt.Local().Format(time.DateTime),
			r.Status, r.Pages, r.FilesWritten, len(r.Warnings), r.Duration.Round(time.Millisecond), r.Trigger)
	}
	return tw.Flush()
}
