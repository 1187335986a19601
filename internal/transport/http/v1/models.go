package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/thinkarr/internal/domain"
)

// ListModels returns the selectable models of the enabled endpoints.
// GET /v1/models
func (h *Handler) ListModels(c echo.Context) error {
	models, err := h.service.ListModels(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	if models == nil {
		models = []domain.ModelOption{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"models": models,
	})
}

// ServiceStatus probes the LLM and the media services.
// GET /v1/services/status
func (h *Handler) ServiceStatus(c echo.Context) error {
	statuses, err := h.service.ServiceStatus(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"services": statuses,
	})
}
