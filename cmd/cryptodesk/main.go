// Command cryptodesk generates and inspects daily crypto market reports.
package main

import (
	"github.com/alecthomas/kong"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("cryptodesk"),
		kong.Description("Multi-agent daily crypto market reports."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
