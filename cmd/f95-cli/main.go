package main

import (
	"context"

	"f95api/cmd/f95-cli/commands"
	"f95api/lib/osutil"
	"f95api/lib/telemetry"
)

func main() {
	telemetry.InitSlog(false)

	ctx, cancel := osutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
