package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/prerender/internal/config"
	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
)

// EnvLogLevel overrides the log level of both the flag and the config file.
const EnvLogLevel = "PRERENDER_LOG_LEVEL"

// Global is shared by every subcommand.
type Global struct {
	Logger *slog.Logger
	Stdout io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"prerender.yaml"`
	Root    string           `help:"Project root (overrides root in the config file)"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run      RunCmd      `cmd:"" default:"withargs" help:"Pre-render all pages once"`
	Watch    WatchCmd    `cmd:"" help:"Pre-render, then re-run whenever page sources change"`
	Schedule ScheduleCmd `cmd:"" help:"Pre-render at a fixed interval"`
	Pages    PagesCmd    `cmd:"" help:"List the pages of the project and how they are pre-rendered"`
	History  HistoryCmd  `cmd:"" help:"Show past runs recorded in the history database"`
	Init     InitCmd     `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(newLogger(os.Stderr, c.logLevel(""), config.LogFormatText))
	return nil
}

// logLevel resolves the effective level: env beats -v, -v beats config.
func (c *CLI) logLevel(configured config.LogLevel) config.LogLevel {
	if env := os.Getenv(EnvLogLevel); env != "" {
		return config.NormalizeLogLevel(env)
	}
	if c.Verbose {
		return config.LogLevelDebug
	}
	if configured != "" {
		return configured
	}
	return config.LogLevelInfo
}

// applyLogging reconfigures the default logger from the loaded config.
func (c *CLI) applyLogging(cfg *config.Config) *slog.Logger {
	logger := newLogger(os.Stderr, c.logLevel(cfg.Logging.Level), cfg.Logging.Format)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, level config.LogLevel, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slogLevel(level)}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// renamedFlags maps flags that no longer exist to their replacement.
var renamedFlags = map[string]string{
	"--no-extra-dir": "--noExtraDir",
	"--out-dir":      "--outDir",
}

// RejectRenamedFlags fails on flags that were renamed, before kong reports
// them as unknown.
func RejectRenamedFlags(args []string) error {
	for _, arg := range args {
		if arg == "--" {
			return nil
		}
		name, _, _ := strings.Cut(arg, "=")
		if repl, ok := renamedFlags[name]; ok {
			return errors.UsageError(fmt.Sprintf(
				"The CLI option %s has been renamed: use %s instead", name, repl)).
				WithContext("flag", name).Build()
		}
	}
	return nil
}
