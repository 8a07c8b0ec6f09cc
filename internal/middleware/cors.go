package middleware

import (
	"github.com/labstack/echo/v4"
)

// AllowOrigin returns an Echo middleware that marks every response as
// readable from any origin.
func AllowOrigin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set(echo.HeaderAccessControlAllowOrigin, "*")
			return next(c)
		}
	}
}
