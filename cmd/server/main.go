package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/kumarlokesh/autocomplete/internal/api"
	"github.com/kumarlokesh/autocomplete/internal/app"
	"github.com/kumarlokesh/autocomplete/internal/config"
	"github.com/kumarlokesh/autocomplete/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: search ., ./configs, /etc/autocomplete)")
	enableDebug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if err := run(*configPath, *enableDebug); err != nil {
		fmt.Fprintf(os.Stderr, "autocomplete-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, debug bool) error {
	if configPath == "" {
		if p, err := config.GetConfigPath(); err == nil {
			configPath = p
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	lg, err := logger.New(logger.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	if err != nil {
		return err
	}
	if configPath != "" {
		lg.Info().Str("path", configPath).Msg("Loaded configuration file")
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close store")
		}
	}()

	// Verify storage is working
	if err := a.Service.Ping(ctx); err != nil {
		return fmt.Errorf("store ping failed: %w", err)
	}

	server := api.NewServer(cfg.Server.Addr(), a.Service, api.Options{
		CORSOrigins:  cfg.Server.CORSOrigins,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, lg)

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// SIGHUP rebuilds the index from the store without a restart
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	lg.Info().
		Str("addr", cfg.Server.Addr()).
		Str("store", cfg.Store.Type).
		Int("words", a.Service.Stats().Words).
		Msg("Autocomplete server starting")

wait:
	for {
		select {
		case err := <-serverErrors:
			return err
		case <-hup:
			if err := a.Service.Reload(ctx); err != nil {
				lg.Error().Err(err).Msg("Reload failed")
				continue
			}
			lg.Info().Int("words", a.Service.Stats().Words).Msg("Index reloaded")
		case sig := <-stop:
			lg.Info().Str("signal", sig.String()).Msg("Shutting down server")
			break wait
		}
	}

	// Create a deadline for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Error().Err(err).Msg("Error during server shutdown")
		return err
	}
	if err := <-serverErrors; err != nil {
		return err
	}

	lg.Info().Msg("Server gracefully stopped")
	return nil
}
