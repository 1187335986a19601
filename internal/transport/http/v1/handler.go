// Package v1 provides the versioned HTTP API of the assistant.
package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/thinkarr/internal/domain"
	"github.com/xiaot623/thinkarr/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the API routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	users := e.Group("/v1", h.RequireUser)

	// Chat API
	users.POST("/chat", h.Chat)
	users.GET("/conversations", h.ListConversations)
	users.POST("/conversations", h.CreateConversation)
	users.GET("/conversations/:id", h.GetConversation)
	users.PATCH("/conversations/:id", h.RenameConversation)
	users.DELETE("/conversations/:id", h.DeleteConversation)
	users.GET("/models", h.ListModels)
	users.GET("/services/status", h.ServiceStatus)

	// External tool API
	tools := e.Group("/v1/tools", h.RequireToolCaller)
	tools.GET("", h.ListTools)
	tools.POST("/:tool_name/invoke", h.InvokeTool)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// StatusFor maps a service error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrToolNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrLLMNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(c echo.Context, err error) error {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("method", c.Request().Method),
			slog.String("path", c.Path()),
			slog.Any("error", err),
		)
		return c.JSON(status, map[string]string{"error": "internal error"})
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
