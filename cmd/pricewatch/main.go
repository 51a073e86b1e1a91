package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pricewatch/cmd/pricewatch/commands"
	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("pricewatch"),
		kong.Description("Keep configurable product prices consistent with the latest selection."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	// AfterApply has configured the default logger by now.
	global := &commands.Global{Logger: slog.Default()}
	if err := parser.Run(global, cli); err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
