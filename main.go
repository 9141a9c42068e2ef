package main

import (
	"github.com/alecthomas/kong"

	"smpctl/internal/cli"
)

func main() {
	var c cli.CLI
	ctx := kong.Parse(&c,
		kong.Name("smpctl"),
		kong.Description("Manage firmware images on a device over a serial line."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&c))
}
