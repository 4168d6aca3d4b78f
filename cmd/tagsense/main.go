// TagSense - scan cloud resources for tag compliance and fix gaps in bulk.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tagsense/tagsense/telemetry"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if os.Getenv("TAGSENSE_TELEMETRY_DISABLED") == "" {
		shutdown, err := telemetry.InitOTEL(ctx, telemetry.Config{
			ServiceName:    "tagsense",
			ServiceVersion: version,
			Environment:    os.Getenv("TAGSENSE_ENV"),
			OTELEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure:       true,
		})
		if err != nil {
			log.Warn().Err(err).Msg("telemetry disabled: init failed")
		} else {
			defer func() {
				flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer flushCancel()
				_ = shutdown(flushCtx)
			}()
		}
	}

	rootCmd.SetContext(ctx)
	Execute()
}
