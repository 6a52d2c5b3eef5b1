package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicdesk/console/internal/config"
	"github.com/clinicdesk/console/internal/platform/backend"
	"github.com/clinicdesk/console/internal/platform/querycache"
	"github.com/clinicdesk/console/internal/platform/telemetry"
	"github.com/clinicdesk/console/internal/web"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "console-server",
		Short: "Clinic admin console server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(routesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the console server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the registered HTTP routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Route registration needs no live backend, so a default
			// config is enough here.
			cfg := &config.Config{
				Port:              "8080",
				Env:               "development",
				APIBaseURL:        "http://127.0.0.1:8000/api/v1",
				APITimeoutSeconds: 15,
				MinTime:           "06:30",
				MaxTime:           "21:30",
				DefaultPageSize:   20,
				DayViewLimit:      500,
				CacheTTLSeconds:   60,
			}
			logger := zerolog.Nop()
			registry := prometheus.NewRegistry()
			metrics := telemetry.New(registry)
			api := backend.New(cfg.APIBaseURL, cfg.APITimeout(), logger, metrics)
			cache := querycache.New(cfg.CacheTTL(), metrics)
			e := web.NewEcho(cfg, api, cache, metrics, registry, logger)
			for _, line := range routeLines(e) {
				cmd.Println(line)
			}
			return nil
		},
	}
}

// routeLines formats the route table sorted by path then method.
func routeLines(e *echo.Echo) []string {
	routes := e.Routes()
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})
	lines := make([]string, 0, len(routes))
	for _, r := range routes {
		lines = append(lines, fmt.Sprintf("%-7s %s", r.Method, r.Path))
	}
	return lines
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	metrics := telemetry.New(registry)

	// Remote scheduling API
	api := backend.New(cfg.APIBaseURL, cfg.APITimeout(), logger, metrics)
	logger.Info().Str("base_url", cfg.APIBaseURL).Msg("remote api configured")

	// Query cache
	cache := querycache.New(cfg.CacheTTL(), metrics)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	cache.StartCleanup(cleanupCtx, cfg.CacheTTL())

	e := web.NewEcho(cfg, api, cache, metrics, registry, logger)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
