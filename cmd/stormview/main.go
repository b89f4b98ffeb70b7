// Command stormview browses storm imagery from the storm monitoring backend.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/stormview/internal/observability"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// CLI is the top-level command structure for stormview.
type CLI struct {
	Version   kong.VersionFlag `help:"Show version." short:"V"`
	Dashboard DashboardCmd     `cmd:"" help:"Open the interactive storm dashboard."`
	Resolve   ResolveCmd       `cmd:"" help:"Resolve the image sequence for a storm or the overview."`
	Detail    DetailCmd        `cmd:"" help:"Fetch the detail record for a storm or the overview."`
	Watch     WatchCmd         `cmd:"" help:"Keep a selection resolved and serve health and metrics."`
	Rain      RainCmd          `cmd:"" help:"Summarise the realtime rain map."`
}

func main() {
	// A missing .env file is normal; the environment alone is enough.
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("stormview"),
		kong.Description("Storm imagery client."),
		kong.Vars{"version": version + " " + commit + " " + date},
	)
	rt := &globals{out: os.Stdout, errOut: os.Stderr, metrics: observability.NewMetrics()}
	if err := ctx.Run(rt); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
