// app/echoServer/middleware.go
package echoServer

import (
	"log/slog"
	"time"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/jwt"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func RegisterMiddlewares(e *echo.Echo) {

	e.Use(middleware.Recover())

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))

	e.Use(Slog())
}

func Slog() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			lat := time.Since(start).Milliseconds()

			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			slog.Info("http",
				"method", c.Request().Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"latency_ms", lat,
				"req_id", rid,
				"ip", c.RealIP(),
			)
			return err
		}
	}
}

// OperatorAuth guards the back-office routes. Operator tokens carry
// role=operator; supporter tokens are rejected here.
func OperatorAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := jwt.ParseAuth(c.Request().Header.Get("Authorization"), secret)
			if err != nil {
				return echo.NewHTTPError(401, "unauthenticated")
			}
			if role, _ := claims["role"].(string); role != "operator" {
				return echo.NewHTTPError(403, "operator role required")
			}
			uid, err := jwt.SubjectID(claims)
			if err != nil {
				return echo.NewHTTPError(401, "unauthenticated")
			}
			c.Set("operator_id", uid)
			return next(c)
		}
	}
}
