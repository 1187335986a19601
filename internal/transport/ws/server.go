// Package ws streams chat turns over WebSocket connections.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/thinkarr/internal/domain"
	"github.com/xiaot623/thinkarr/internal/service"
	v1 "github.com/xiaot623/thinkarr/internal/transport/http/v1"
	"github.com/xiaot623/thinkarr/internal/transport/stream"
)

// Options tunes connection keepalive.
type Options struct {
	MaxMessageSize int64
	PingInterval   time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DefaultOptions returns the keepalive settings used by the server.
func DefaultOptions() Options {
	return Options{
		MaxMessageSize: 64 * 1024,
		PingInterval:   30 * time.Second,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

// Server handles WebSocket chat connections.
type Server struct {
	service  *service.Service
	logger   *slog.Logger
	opts     Options
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(svc *service.Service, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		service: svc,
		logger:  logger.With("component", "ws"),
		opts:    opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The fronting proxy owns origin checks.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers the WebSocket endpoint.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/chat/ws", s.HandleWebSocket)
}

// HandleWebSocket authenticates the caller, upgrades the connection and
// serves turns until the client goes away. Each text message is a
// TurnRequest; every event is written as one JSON text frame and each turn
// ends with a "[DONE]" frame.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := s.service.Caller(ctx, c.Request().Header.Get(v1.HeaderUserID))
	if err != nil {
		return c.JSON(v1.StatusFor(err), map[string]string{"error": err.Error()})
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", "error", err)
		return nil
	}
	defer conn.Close()

	// Turns run until the socket closes.
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	requests := make(chan domain.TurnRequest)
	go s.readPump(ctx, cancel, conn, requests)
	go s.pingPump(ctx, conn)

	logger := s.logger.With("user_id", user.ID)
	for req := range requests {
		if !s.serveTurn(ctx, conn, user, req, logger) {
			break
		}
	}
	return nil
}

// readPump decodes requests until the connection fails, then cancels ctx.
func (s *Server) readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out chan<- domain.TurnRequest) {
	defer close(out)
	defer cancel()

	conn.SetReadLimit(s.opts.MaxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	})

	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read failed", "error", err)
			}
			return
		}

		// An undecodable message becomes an empty request, which fails validation.
		var req domain.TurnRequest
		_ = json.Unmarshal(message, &req)
		select {
		case out <- req:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) pingPump(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.opts.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// serveTurn runs one turn and reports whether the connection is still usable.
func (s *Server) serveTurn(ctx context.Context, conn *websocket.Conn, user *domain.User, req domain.TurnRequest, logger *slog.Logger) bool {
	events, err := s.service.StartTurn(ctx, user, req)
	if err != nil {
		msg := err.Error()
		if v1.StatusFor(err) == http.StatusInternalServerError {
			logger.Error("failed to start turn", "error", err)
			msg = "internal error"
		}
		if !s.writeJSON(conn, domain.NewError(msg)) {
			return false
		}
		return s.writeDone(conn)
	}

	for ev := range events {
		if !s.writeJSON(conn, ev) {
			return false
		}
	}
	if ctx.Err() != nil {
		return false
	}
	return s.writeDone(conn)
}

func (s *Server) writeJSON(conn *websocket.Conn, v any) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	if err := conn.WriteJSON(v); err != nil {
		s.logger.Debug("failed to write websocket frame", "error", err)
		return false
	}
	return true
}

func (s *Server) writeDone(conn *websocket.Conn) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(stream.DoneMarker)); err != nil {
		s.logger.Debug("failed to write websocket frame", "error", err)
		return false
	}
	return true
}
