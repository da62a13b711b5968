// Package app owns the top-level application lifecycle. It wires the venue
// sources, cache, wallet, pipeline stages, and operational surfaces together,
// then supervises the pipeline loop and the HTTP server until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/omniarb/omniarbbot/internal/config"
	"github.com/omniarb/omniarbbot/internal/server"
)

// App is the root application object. It owns the configuration, logger, and
// the cleanup functions run in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the pipeline and the HTTP server, and
// blocks until the context is cancelled or a bounded run completes. A
// configured run_duration bounds the session; zero runs until shutdown.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Bool("auto_trading", a.cfg.Trading.AutoTrading),
		slog.Duration("run_duration", a.cfg.Bot.RunDuration.Duration),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if a.cfg.Server.Enabled {
		srv := server.New(
			server.Config{Port: a.cfg.Server.Port},
			deps.Orchestrator,
			deps.Registry,
			a.logger,
		)
		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutCancel()
			return srv.Shutdown(shutCtx)
		})
	}

	g.Go(func() error {
		// When the pipeline finishes, the whole application winds down.
		defer cancel()
		if d := a.cfg.Bot.RunDuration.Duration; d > 0 {
			return deps.Orchestrator.RunFor(ctx, d)
		}
		return deps.Orchestrator.Run(ctx)
	})

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
