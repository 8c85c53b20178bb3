package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"techbar/internal/handlers"
	"techbar/internal/metrics"
	"techbar/internal/middleware"
	"techbar/internal/overhead"
	"techbar/internal/render"
	"techbar/internal/router"
)

// Admin mutations allowed per client and window.
const (
	mutationLimit  = 30
	mutationWindow = time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and overhead displays",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	m := metrics.New()
	svc := b.catalogService(cfg, m)

	// Warm the default kapp so the first request does not pay for the build.
	if _, err := svc.Helper(ctx, cfg.KappSlug); err != nil {
		zap.S().Warnw("initial catalog build failed", "kapp", cfg.KappSlug, "error", err)
	}

	renderer, err := render.New()
	if err != nil {
		return err
	}

	board := overhead.NewBoard(cfg.TechBarIDs, b.platform, overhead.Config{
		Kapp:     cfg.AppointmentKapp,
		Form:     cfg.AppointmentForm,
		Interval: cfg.OverheadInterval,
	}, m)

	r := router.New(router.Handlers{
		Catalog:     handlers.NewCatalog(svc),
		Submissions: handlers.NewSubmissions(svc),
		Overhead:    handlers.NewOverhead(board, renderer, int(cfg.OverheadInterval.Seconds())),
		Pages:       handlers.NewPages(svc, renderer),
	}, m, middleware.NewRateLimiter(ctx, mutationLimit, mutationWindow))

	// WriteTimeout must cover the longest submission await.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 11 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.S().Infow("overhead displays starting", "techbars", board.IDs())
		return board.Run(gctx)
	})
	g.Go(func() error {
		zap.S().Infow("server starting", "addr", cfg.Addr(), "env", cfg.Env, "source", cfg.CatalogSource)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.S().Infow("shutting down")

		// Give active requests up to 30 seconds to complete.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	zap.S().Infow("server stopped gracefully")
	return nil
}
