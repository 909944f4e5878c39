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
	"github.com/kelseyhightower/envconfig"

	"github.com/mycelian/rinku/internal/logger"
	"github.com/mycelian/rinku/internal/mockbackend"
)

type serverConfig struct {
	Addr   string `envconfig:"ADDR" default:":11545"`
	APIKey string `envconfig:"API_KEY" default:""`
}

func main() {
	log := logger.New("mock-backend")
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("loading .env")
	}

	var cfg serverConfig
	if err := envconfig.Process("RINKU_MOCK", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to process environment variables")
	}

	backend := mockbackend.New(cfg.APIKey, log)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           backend.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("mock backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			os.Exit(1)
		}
		log.Info().Msg("Server exited")
	case err := <-errCh:
		log.Fatal().Stack().Err(err).Msg("HTTP server failed")
	}
}
