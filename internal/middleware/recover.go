package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
)

// PanicBodyPrefix starts the body of every response produced by a recovered panic.
const PanicBodyPrefix = "cfworker error:\n"

// PanicResponder returns an Echo middleware that turns a panic anywhere below
// it into a 502 whose body is PanicBodyPrefix followed by the stack trace.
func PanicResponder(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				stack := debug.Stack()
				logger.Error("panic recovered",
					"panic", fmt.Sprint(r),
					"path", c.Request().URL.Path,
				)
				if c.Response().Committed {
					err = nil
					return
				}
				err = c.String(http.StatusBadGateway, PanicBodyPrefix+string(stack))
			}()
			return next(c)
		}
	}
}
