package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/prerender/internal/config"
	"git.home.luguber.info/inful/prerender/internal/eventstore"
	"git.home.luguber.info/inful/prerender/internal/gitinfo"
	"git.home.luguber.info/inful/prerender/internal/hooks"
	"git.home.luguber.info/inful/prerender/internal/logfields"
	"git.home.luguber.info/inful/prerender/internal/metrics"
	"git.home.luguber.info/inful/prerender/internal/output"
	"git.home.luguber.info/inful/prerender/internal/prerender"
	"git.home.luguber.info/inful/prerender/internal/registry"
	"git.home.luguber.info/inful/prerender/internal/render"
)

// runOnce discovers the pages and pre-renders them with the sinks, metrics
// and history configured in cfg.
func runOnce(ctx context.Context, cfg *config.Config, trigger string, logger *slog.Logger) (*prerender.Report, error) {
	catalog, err := registry.Discover(cfg.Root, cfg.Pages, cfg.ClientRouting)
	if err != nil {
		return nil, err
	}
	resolver := hooks.NewResolver(cfg.Root, os.Environ())
	router, err := prerender.NewRouter(catalog, resolver)
	if err != nil {
		return nil, err
	}
	engine, err := render.NewEngine(catalog)
	if err != nil {
		return nil, err
	}

	reg := prom.NewRegistry()
	opts := prerender.Options{
		Config:   cfg,
		Recorder: metrics.NewPrometheusRecorder(reg),
		Logger:   logger,
		Hooks:    resolver,
		Trigger:  trigger,
		Revision: gitinfo.Revision(cfg.Root),
	}

	if cfg.Output.Sink == config.SinkNATS {
		conn, dialErr := output.DialNATS(cfg.Output.NATS.URL, cfg.Output.NATS.Subject)
		if dialErr != nil {
			return nil, dialErr
		}
		defer func() {
			if closeErr := conn.Close(context.WithoutCancel(ctx)); closeErr != nil {
				logger.Warn("Failed to flush NATS sink", logfields.Error(closeErr))
			}
		}()
		opts.Sink = conn
	}

	if path := cfg.ResolvePath(cfg.History); path != "" {
		store, storeErr := eventstore.NewSQLiteStore(path)
		if storeErr != nil {
			logger.Warn("Run history disabled", logfields.Path(path), logfields.Error(storeErr))
		} else {
			defer func() { _ = store.Close() }()
			opts.Observers = append(opts.Observers, eventstore.NewHistoryObserver(store, nil, logger))
		}
	}

	report, runErr := prerender.Run(ctx, catalog, router, engine, opts)

	if path := cfg.ResolvePath(cfg.Report); path != "" && report != nil {
		if err := report.Persist(path); err != nil {
			logger.Warn("Failed to write run report", logfields.Path(path), logfields.Error(err))
		}
	}
	if err := metrics.WriteTextfile(cfg.ResolvePath(cfg.Metrics.Textfile), reg); err != nil {
		logger.Warn("Failed to write metrics", logfields.Error(err))
	}
	if report != nil {
		logger.Debug("Run finished", slog.String("summary", report.Summary()))
	}
	return report, runErr
}

// loadAndApply loads the config, merges flags and switches logging to the
// configured level and format.
func loadAndApply(root *CLI, flags RunFlags) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, nil, err
	}
	if err := flags.apply(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, root.applyLogging(cfg), nil
}

func trigger(cmd string) string { return fmt.Sprintf("prerender %s", cmd) }
