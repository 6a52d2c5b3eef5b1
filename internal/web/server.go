package web

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/console/internal/config"
	"github.com/clinicdesk/console/internal/manager"
	"github.com/clinicdesk/console/internal/platform/backend"
	"github.com/clinicdesk/console/internal/platform/middleware"
	"github.com/clinicdesk/console/internal/platform/querycache"
	"github.com/clinicdesk/console/internal/platform/telemetry"
	"github.com/clinicdesk/console/internal/visits"
)

// NewEcho assembles the full console server: middleware stack, page and API
// routes, health, and metrics.
func NewEcho(cfg *config.Config, api Backend, cache *querycache.Cache, metrics *telemetry.Metrics, gatherer prometheus.Gatherer, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = NewRenderer()

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.Logger(logger, metrics))
	e.Use(middleware.RequestTimeout(2 * cfg.APITimeout()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	minMinute, maxMinute := cfg.Window()
	view := visits.NewView(api, cache, logger, minMinute, maxMinute, cfg.DayViewLimit)
	NewVisitHandler(api, view, cache, cfg, logger).RegisterRoutes(e)

	doctors := manager.New(DoctorConfig(api), cache, logger)
	NewEntityHandler(doctors, "Врачи", "/doctors",
		func(d backend.Doctor) uuid.UUID { return d.ID }).RegisterRoutes(e)

	clients := manager.New(ClientConfig(api), cache, logger)
	NewEntityHandler(clients, "Клиенты", "/clients",
		func(c backend.Client) uuid.UUID { return c.ID }).RegisterRoutes(e)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return e
}
