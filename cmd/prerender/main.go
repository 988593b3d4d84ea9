package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/prerender/cmd/prerender/commands"
	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
	"git.home.luguber.info/inful/prerender/internal/version"
)

func main() {
	if err := commands.RejectRenamedFlags(os.Args[1:]); err != nil {
		errors.NewCLIErrorAdapter(false, slog.Default()).HandleError(err)
	}

	var cli commands.CLI
	parser := kong.Parse(&cli,
		kong.Name("prerender"),
		kong.Description("Pre-render every page of a project to static HTML."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Full()},
	)
	err := parser.Run(&commands.Global{Logger: slog.Default(), Stdout: os.Stdout}, &cli)
	errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
