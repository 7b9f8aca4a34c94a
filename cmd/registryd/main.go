// main.go - registryd, the group-root registry host.
//
// registryd is the stand-in for the on-chain execution environment: it owns
// the durable registry state, attests caller identities, logs every root
// transition, and takes action submissions from anonymous members. Run it
// with a data directory for durable state, or without one for an ephemeral
// in-memory registry.
//
// Usage:
//   registryd [--config registryd.yaml]
//   REGISTRYD_LISTEN_ADDR=:9000 registryd

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"anonsignal/internal/registry"
	"anonsignal/internal/server"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "registryd",
		Short:        "Host the group-root registry and take anonymous action submissions",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a config file (optional)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *Config) error {
	log := newLogger(cfg.LogLevel)

	store, err := registry.OpenBadger(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()
	if cfg.DataDir == "" {
		log.Warn().Msg("no data_dir configured, registry state is in-memory only")
	}

	reg, err := registry.New(store)
	if err != nil {
		return err
	}
	if reg.Initialized() {
		log.Info().
			Str("current_root", reg.CurrentRoot().Hex()).
			Str("admin", string(reg.Admin())).
			Msg("registry state reloaded")
	} else {
		log.Info().Msg("registry awaiting initialization")
	}

	srv := server.New(server.Options{
		Logger:     log,
		Registry:   reg,
		RateLimit:  cfg.RateLimit,
		RefillRate: cfg.RefillRate,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("registryd listening")
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
