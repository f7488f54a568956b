package main

import (
	"context"
	"fmt"
	"os"
	"sebastian/cmd/sebastian/commands"
	"sebastian/lib/osutil"
	"sebastian/lib/telemetry"
	"time"
)

func run() int {
	ctx, cancel := osutil.SignalContext(context.Background())
	defer cancel()

	tel, err := telemetry.SetupFromEnv(ctx, "sebastian")
	switch {
	case err == nil:
		if tel.Metrics() {
			telemetry.InstrumentPerfStats(ctx)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			tel.Shutdown(shutdownCtx)
		}()
	case !os.IsNotExist(err):
		fmt.Fprintln(os.Stderr, "failed to setup telemetry:", err)
	}

	err = commands.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
