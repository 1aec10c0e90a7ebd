package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/wolfeidau/calendash/internal/logger"
	"github.com/wolfeidau/calendash/internal/server"
	"github.com/wolfeidau/calendash/internal/session"
	"github.com/wolfeidau/calendash/internal/telemetry"
)

type ServeCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"localhost:5174" env:"CALENDASH_LISTEN"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"http://localhost:5174" env:"CALENDASH_CORS_ORIGINS"`

	// Refresh limits
	RefreshRate  float64 `help:"meeting refreshes allowed per second" default:"0.2" env:"CALENDASH_REFRESH_RATE"`
	RefreshBurst int     `help:"meeting refresh burst size" default:"3" env:"CALENDASH_REFRESH_BURST"`

	// Telemetry
	Tracing     bool    `help:"enable tracing and metrics export" default:"false" env:"CALENDASH_TRACING"`
	SampleRatio float64 `help:"fraction of traces to keep" default:"1" env:"CALENDASH_TRACE_SAMPLE_RATIO"`

	App AppFlags `embed:""`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx = log.WithContext(ctx)

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: "calendash",
			Version:     globals.Version,
			SampleRatio: c.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	rt, err := c.App.build(c.Tracing)
	if err != nil {
		return err
	}
	defer rt.Close()

	if sess, err := rt.shell.Restore(ctx); err == nil {
		log.Info().Str("user", sess.Identity.Email).Time("expires_at", sess.ExpiresAt).Msg("Restored session")
	} else if !errors.Is(err, session.ErrNoSession) && !errors.Is(err, session.ErrSessionExpired) {
		return fmt.Errorf("failed to restore session: %w", err)
	}

	srv := server.New(rt.shell, server.Config{
		CORSOrigins:  c.CORSOrigins,
		Tracing:      c.Tracing,
		RefreshRate:  rate.Limit(c.RefreshRate),
		RefreshBurst: c.RefreshBurst,
	}, log)

	httpServer := configureHTTPServer(c.Listen, srv.Handler())

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", c.Listen).
			Bool("mock_auth", c.App.MockAuth).
			Str("calendar", c.App.CalendarSource).
			Msg("Starting HTTP server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return httpServer.Shutdown(shutdownCtx)
}
