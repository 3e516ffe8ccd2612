package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve [ROOM...]",
	Short: "Run the timer daemon and shell API",
	Long: `Opens a timer session for every room, consumes pushed timer events and
serves the shell API. Rooms come from the arguments, or the config's rooms
list when none are given.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "shell API port (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	rooms := cfg.Rooms
	if len(args) > 0 {
		rooms = args
	}
	if len(rooms) == 0 {
		return errors.New("no rooms to serve: pass ROOM arguments or set rooms in the config")
	}
	if servePort != "" {
		cfg.Shell.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := setupServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Close()

	log.Info().
		Strs("rooms", rooms).
		Str("transport", cfg.Transport.Kind).
		Str("storage", cfg.Storage.Driver).
		Str("port", cfg.Shell.Port).
		Msg("starting studyroom timer daemon")

	server := setupServer(cfg, services)
	g, ctx := errgroup.WithContext(ctx)

	// Shell broadcasts
	g.Go(func() error {
		services.Shell.Start(ctx)
		return nil
	})

	for _, room := range rooms {
		services.Manager.Open(ctx, room)
	}

	// Pushed events
	if services.Transport != nil {
		g.Go(func() error {
			if err := services.Transport.Run(ctx, rooms, services.Manager.Dispatch); err != nil {
				return fmt.Errorf("transport failed: %w", err)
			}
			return nil
		})
	} else {
		log.Warn().Msg("no event transport configured; rooms follow local commands only")
	}

	// HTTP server
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown failed")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("studyroom timer daemon shutdown complete")
	return nil
}
