package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/jaunt/cmd/jaunt/commands"
	"git.home.luguber.info/inful/jaunt/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("jaunt"),
		kong.Description("Incremental LLM-backed code generation."),
		kong.Vars{"version": version.Version},
	)

	global := &commands.Global{Logger: slog.Default()}
	if err := ctx.Run(global, &cli); err != nil {
		os.Exit(1)
	}
}
