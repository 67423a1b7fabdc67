// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires the services together and runs the HTTP surface and
// the scheduler side by side.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/coatsure/warrantyd/internal/clock"
	"github.com/coatsure/warrantyd/internal/config"
	"github.com/coatsure/warrantyd/internal/database"
	"github.com/coatsure/warrantyd/internal/handlers"
	"github.com/coatsure/warrantyd/internal/i18n"
	"github.com/coatsure/warrantyd/internal/notify"
	"github.com/coatsure/warrantyd/internal/repository"
	"github.com/coatsure/warrantyd/internal/services/lifecycle"
	"github.com/coatsure/warrantyd/internal/services/reinstate"
	"github.com/coatsure/warrantyd/internal/services/scheduler"
	"github.com/coatsure/warrantyd/internal/services/token"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database (migrations run on open)
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	// Services
	repo := repository.New(db)
	clk := clock.System{}

	var gateway notify.Gateway
	if cfg.SMTP.Host == "" {
		slog.Warn("no SMTP host configured, notifications go to the log")
		gateway = notify.LogGateway{}
	} else {
		gateway, err = notify.New(&cfg.SMTP, &cfg.SMS)
		if err != nil {
			return fmt.Errorf("failed to set up notifications: %w", err)
		}
	}

	tokens := token.NewService(repo, cfg.Tokens, clk)
	machine := lifecycle.NewService(repo, tokens, gateway, lifecycle.AcceptAllChecker{},
		cfg.Policy, clk, cfg.Server.BaseURL)
	reinstater := reinstate.NewService(repo, cfg.Policy, clk)
	sweeper := scheduler.NewSweeper(repo, machine, tokens, gateway,
		cfg.Scheduler, cfg.Policy, clk, cfg.Server.BaseURL)
	sched := scheduler.New(sweeper, cfg.Scheduler)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	setupMiddleware(e)
	setupRoutes(e, handlers.New(repo, machine, reinstater, sched))

	return run(ctx, e, sched, cfg)
}

func setupRoutes(e *echo.Echo, h *handlers.Handlers) {
	e.GET("/health", h.Health)

	// Record intake
	e.POST("/warranties", h.CreateWarranty)
	e.GET("/warranties/:id", h.GetWarranty)
	e.POST("/warranties/:id/submit", h.SubmitWarranty)
	e.POST("/inspections", h.CreateInspection)
	e.POST("/inspections/:id/submit", h.SubmitInspection)
	e.GET("/records/:id/audit", h.GetAuditTrail)

	// Token-gated actor endpoints
	e.POST("/verify/:token", h.Verify)
	e.POST("/activate/:token", h.Activate)

	// Administrative surface
	e.POST("/admin/sweeps/:name", h.TriggerSweep)
	e.GET("/admin/jobs", h.ListJobs)
	e.POST("/admin/warranties/:id/override", h.OverrideWarranty)
	e.POST("/admin/inspections/:id/override", h.OverrideInspection)
	e.GET("/admin/warranties/:id/reinstate", h.ReinstateEligibility)
	e.POST("/admin/warranties/:id/reinstate", h.Reinstate)
}

// run starts the scheduler and HTTP listener and blocks until a signal or a
// server error. The scheduler stops before the listener so no sweep observes
// a half-shutdown process.
func run(ctx context.Context, e *echo.Echo, sched *scheduler.Scheduler, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Scheduler.AutoStart {
		sched.Start(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		slog.Info("server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		sched.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		return err
	}

	slog.Info("server stopped")
	return nil
}
