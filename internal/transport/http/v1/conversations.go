package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/thinkarr/internal/domain"
)

// ListConversations returns the caller's conversations.
// GET /v1/conversations
func (h *Handler) ListConversations(c echo.Context) error {
	convs, err := h.service.ListConversations(c.Request().Context(), UserFromContext(c))
	if err != nil {
		return h.respondError(c, err)
	}
	if convs == nil {
		convs = []domain.Conversation{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversations": convs,
	})
}

// CreateConversation starts an empty conversation.
// POST /v1/conversations
func (h *Handler) CreateConversation(c echo.Context) error {
	var req domain.CreateConversationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	conv, err := h.service.CreateConversation(c.Request().Context(), UserFromContext(c), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, conv)
}

// GetConversation returns a conversation with its messages.
// GET /v1/conversations/:id
func (h *Handler) GetConversation(c echo.Context) error {
	detail, err := h.service.GetConversation(c.Request().Context(), UserFromContext(c), c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// RenameConversation changes a conversation title.
// PATCH /v1/conversations/:id
func (h *Handler) RenameConversation(c echo.Context) error {
	var req domain.RenameConversationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	conv, err := h.service.RenameConversation(c.Request().Context(), UserFromContext(c), c.Param("id"), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

// DeleteConversation removes a conversation and its messages.
// DELETE /v1/conversations/:id
func (h *Handler) DeleteConversation(c echo.Context) error {
	if err := h.service.DeleteConversation(c.Request().Context(), UserFromContext(c), c.Param("id")); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
