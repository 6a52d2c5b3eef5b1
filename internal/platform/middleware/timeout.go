package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout sets a context deadline on each request. A handler that
// outlives the deadline gets its context cancelled and the client receives a
// 504. The remote API client inherits the deadline through the request
// context, so one slow upstream call cannot pin a console worker forever.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded {
					if !c.Response().Committed {
						return echo.NewHTTPError(http.StatusGatewayTimeout, "запрос превысил отведённое время")
					}
					return nil
				}
				return ctx.Err()
			}
		}
	}
}
