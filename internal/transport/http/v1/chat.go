package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/thinkarr/internal/domain"
	"github.com/xiaot623/thinkarr/internal/transport/stream"
)

// Chat runs one chat turn and streams its events as server-sent events.
// POST /v1/chat
func (h *Handler) Chat(c echo.Context) error {
	var req domain.TurnRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	events, err := h.service.StartTurn(c.Request().Context(), UserFromContext(c), req)
	if err != nil {
		return h.respondError(c, err)
	}

	resp := c.Response()
	stream.SetHeaders(resp.Header())
	resp.WriteHeader(http.StatusOK)

	if err := stream.Pipe(stream.NewWriter(resp), events); err != nil {
		// The client went away; the turn already stopped.
		h.logger.Debug("chat stream closed early",
			"conversation_id", req.ConversationID,
			"error", err,
		)
	}
	return nil
}
