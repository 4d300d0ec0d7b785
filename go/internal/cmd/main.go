package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	config, err := loadConfig(getEnv("ROUNDSYNC_CONFIG", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config); err != nil {
		log.Fatal().Err(err).Msg("roundsync stopped with error")
	}
	log.Info().Msg("roundsync stopped")
}

func run(ctx context.Context, config *Config) error {
	kv, closeStore, err := setupStore(ctx, config)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error().Err(err).Msg("failed to close store")
		}
	}()

	services, err := setupServices(ctx, config, kv)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	server := setupServer(config, services)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		if services.Player != nil {
			return services.Player.Run(gctx)
		}
		return services.Host.Run(gctx)
	})

	if services.Notifier != nil {
		g.Go(func() error {
			// Polling keeps working without push, so a dead transport is not fatal.
			if err := services.Notifier.Run(gctx); err != nil {
				log.Error().Err(err).Str("kind", config.Notifier.Kind).Msg("push notifier stopped, continuing with polling only")
			}
			return nil
		})
	}

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Str("role", config.Role).Msg("starting view server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
