package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	auth "github.com/goliatone/go-pharmacy-auth"
	"github.com/goliatone/go-pharmacy-auth/middleware/ratelimit"
)

var serveAddress string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the JSON API:

  POST /auth/register
  POST /auth/login
  GET  /auth/me
  GET  /auth/policy
  GET  /metrics

The server drains connections on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "Address to listen on, overrides http.address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	app, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	logger := app.GetLogger("http")
	cfg := app.config

	if err := auth.CreateSchema(ctx, app.db); err != nil {
		return err
	}

	limiter := ratelimit.New(ratelimit.Config{
		Rate:  rate.Limit(cfg.HTTP.RateLimit / 60.0),
		Burst: cfg.HTTP.RateBurst,
	})
	defer limiter.Stop()

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return fiber.New(fiber.Config{
			DisableStartupMessage: true,
			StrictRouting:         false,
		})
	})

	srv.Router().WithLogger(logger)

	auth.RegisterAuthRoutes(srv.Router(),
		auth.WithControllerLogger(logger),
		auth.WithControllerDebug(cfg.Log.Debug),
		auth.WithRegistrar(app.registrar()),
		auth.WithAuther(app.auther(), cfg.Auth),
		auth.WithRateLimiter(limiter.Middleware()),
	)

	fiberApp := srv.WrappedRouter()
	if cfg.HTTP.Metrics {
		fiberApp.Get("/metrics", adaptor.HTTPHandler(
			promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}),
		))
	}

	address := cfg.HTTP.Address
	if serveAddress != "" {
		address = serveAddress
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", address)
		errCh <- fiberApp.Listen(address)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()
	return fiberApp.ShutdownWithContext(shutdownCtx)
}

func shutdownTimeout(cfg *AppConfig) time.Duration {
	if cfg.HTTP.ShutdownTimeout <= 0 {
		return 15 * time.Second
	}
	return cfg.HTTP.ShutdownTimeout
}
