// Package main runs the EdgeHub server: device registry, job queues,
// and the HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/edgehub/edgehub/internal/config"
	"github.com/edgehub/edgehub/internal/httpapi"
	"github.com/edgehub/edgehub/internal/hub"
	"github.com/edgehub/edgehub/internal/llm"
	"github.com/edgehub/edgehub/internal/logger"
)

func main() {
	// Load .env file if it exists
	godotenv.Load()

	cfg, err := config.ServerFromEnv()
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		os.Stderr.WriteString("logger error: " + err.Error() + "\n")
		os.Exit(1)
	}

	h := hub.New(hub.Config{
		MaxCompleted:       cfg.MaxCompleted,
		DefaultWaitTimeout: cfg.DefaultWait(),
		MaxWaitTimeout:     cfg.MaxWait(),
		DispatchTimeout:    cfg.DispatchTimeout(),
		RequireApproval:    cfg.RequireApproval,
	}, logger.WithComponent(log, "hub"))
	defer h.Close()

	provider, err := llm.NewFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("LLM provider init failed")
	}
	if provider != nil {
		log.Info().Str("provider", provider.Name()).Msg("chat assistant enabled")
	} else {
		log.Info().Msg("chat assistant disabled")
	}

	if cfg.Password == "" {
		log.Warn().Msg("EDGEHUB_PASSWORD not set, API is unauthenticated")
	}

	api := httpapi.New(h, provider, cfg, logger.WithComponent(log, "http"))
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
