package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/nearwatch/cmd/nearwatch/commands"
)

var version = "dev"

func main() {
	// Secrets (NATS URL) can live in .env next to the config file. Missing
	// files are fine; existing environment wins.
	_ = godotenv.Load()

	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("nearwatch"),
		kong.Description("Screen-time and viewing-distance monitor."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	if err := ctx.Run(&commands.Global{}); err != nil {
		ctx.Errorf("%v", err)
		os.Exit(1)
	}
}
