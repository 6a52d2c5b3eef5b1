package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/console/internal/platform/telemetry"
)

// Logger logs one line per request and feeds the request counter. The route
// template, not the raw path, goes to the metric so entity ids do not blow
// up the label space.
func Logger(logger zerolog.Logger, metrics *telemetry.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = req.URL.Path
			}
			metrics.ObserveRequest(req.Method, route, strconv.Itoa(status))

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
