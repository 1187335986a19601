package v1

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/thinkarr/internal/domain"
)

// ListTools returns the tools the caller may run.
// GET /v1/tools
func (h *Handler) ListTools(c echo.Context) error {
	schemas, err := h.service.ListTools(c.Request().Context(), LevelFromContext(c))
	if err != nil {
		return h.respondError(c, err)
	}
	if schemas == nil {
		schemas = []domain.ToolSchema{}
	}
	return c.JSON(http.StatusOK, domain.ToolListResponse{Tools: schemas})
}

// InvokeTool handles tool invocation.
// POST /v1/tools/:tool_name/invoke
func (h *Handler) InvokeTool(c echo.Context) error {
	toolName := c.Param("tool_name")
	var req domain.ToolInvokeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	result, err := h.service.InvokeTool(c.Request().Context(), LevelFromContext(c), toolName, req.ArgumentsText())
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusOK, domain.ToolInvokeResponse{
		Tool:   toolName,
		Result: json.RawMessage(result),
	})
}
