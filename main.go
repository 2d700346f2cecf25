package main

import (
	"fmt"
	"os"
	"time"

	"github.com/roomlens/roomlens-go/cmd"
	"github.com/roomlens/roomlens-go/internal/conf"
	"github.com/roomlens/roomlens-go/internal/logging"
	"github.com/roomlens/roomlens-go/internal/telemetry"
)

var version = "dev"

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if settings.Sentry.Enabled {
		if err := telemetry.Init(telemetry.Config{
			Enabled: true,
			DSN:     settings.Sentry.DSN,
			Debug:   settings.Sentry.Debug,
			Release: version,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "warning: telemetry init failed: %v\n", err)
		}
		defer telemetry.Flush(2 * time.Second)
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
