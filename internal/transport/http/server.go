// Package http provides the HTTP server of the assistant.
package http

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/thinkarr/internal/service"
	v1 "github.com/xiaot623/thinkarr/internal/transport/http/v1"
	"github.com/xiaot623/thinkarr/internal/transport/mcpserver"
	"github.com/xiaot623/thinkarr/internal/transport/ws"
)

// Version is reported by the MCP server.
const Version = "0.1.0"

// NewServer creates and configures the HTTP server. It serves the chat API
// (REST, SSE and WebSocket), the external tool API and the MCP endpoint.
func NewServer(svc *service.Service, logger *slog.Logger) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.RequestLoggerWithConfig(requestLoggerConfig(logger)))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc, logger)
	wsServer := ws.NewServer(svc, ws.DefaultOptions(), logger)
	mcpServer := mcpserver.NewServer(svc, Version, logger)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	wsServer.RegisterRoutes(e)
	mcpServer.RegisterRoutes(e, v1Handler.RequireToolCaller)

	return e
}

func requestLoggerConfig(logger *slog.Logger) middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				logger.Error("request", append(attrs, slog.Any("error", v.Error))...)
				return nil
			}
			logger.Info("request", attrs...)
			return nil
		},
	}
}
