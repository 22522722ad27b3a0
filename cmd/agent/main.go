// Package main runs an EdgeHub device agent: it registers with the hub,
// polls for jobs, and executes them locally.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/edgehub/edgehub/internal/agent"
	"github.com/edgehub/edgehub/internal/deviceid"
	"github.com/edgehub/edgehub/internal/logger"
)

func main() {
	godotenv.Load()

	var (
		hubURL      = flag.String("hub", envOrDefault("EDGEHUB_URL", "http://localhost:8080"), "hub base URL")
		displayName = flag.String("name", os.Getenv("EDGEHUB_AGENT_NAME"), "display name for this device")
		pollMs      = flag.Int("poll-ms", 2000, "idle poll interval in milliseconds")
		logLevel    = flag.String("log-level", envOrDefault("LOG_LEVEL", "info"), "log level")
	)
	flag.Parse()

	log, err := logger.New(logger.Config{Level: *logLevel})
	if err != nil {
		os.Stderr.WriteString("logger error: " + err.Error() + "\n")
		os.Exit(1)
	}

	ids, err := deviceid.DefaultStore()
	if err != nil {
		log.Fatal().Err(err).Msg("could not locate device id store")
	}
	id, err := ids.Ensure()
	if err != nil {
		log.Fatal().Err(err).Msg("could not determine device id")
	}

	meta := map[string]interface{}{}
	if *displayName != "" {
		meta["display_name"] = *displayName
	}

	a := agent.New(id, agent.NewClient(*hubURL, 10*time.Second), logger.WithComponent(log, "agent"),
		agent.WithPollInterval(time.Duration(*pollMs)*time.Millisecond),
		agent.WithMeta(meta))
	a.RegisterBuiltins()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("hub", *hubURL).Str("device_id", id).Msg("agent starting")
	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("agent stopped")
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
