// Package mcpserver exposes the tool registry as a Model Context Protocol server.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/xiaot623/thinkarr/internal/domain"
	"github.com/xiaot623/thinkarr/internal/service"
	v1 "github.com/xiaot623/thinkarr/internal/transport/http/v1"
)

// Path is where the streamable HTTP endpoint is mounted.
const Path = "/mcp"

type levelKey struct{}

// WithLevel attaches the caller's permission level to ctx.
func WithLevel(ctx context.Context, level domain.PermissionLevel) context.Context {
	return context.WithValue(ctx, levelKey{}, level)
}

// LevelFrom returns the level stored by WithLevel, defaulting to scoped.
func LevelFrom(ctx context.Context) domain.PermissionLevel {
	if level, ok := ctx.Value(levelKey{}).(domain.PermissionLevel); ok {
		return level
	}
	return domain.PermissionScoped
}

// Server mirrors the registry into an MCP server. Listing is filtered by
// the permission gate and every call goes through the service's gateway.
type Server struct {
	service *service.Service
	logger  *slog.Logger
	mcp     *server.MCPServer
	http    *server.StreamableHTTPServer

	mu    sync.Mutex
	known map[string]bool
}

// NewServer creates the MCP server.
func NewServer(svc *service.Service, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		service: svc,
		logger:  logger.With("component", "mcp"),
		known:   make(map[string]bool),
	}
	s.mcp = server.NewMCPServer("thinkarr", version,
		server.WithToolCapabilities(true),
		server.WithToolFilter(s.filterTools),
		server.WithRecovery(),
	)
	s.http = server.NewStreamableHTTPServer(s.mcp,
		server.WithEndpointPath(Path),
		server.WithStateLess(true),
	)
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// RegisterRoutes mounts the endpoint behind the tool caller middleware.
func (s *Server) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	e.Any(Path, s.Handle, auth)
}

// Handle serves one MCP HTTP request for an authenticated caller.
func (s *Server) Handle(c echo.Context) error {
	ctx := c.Request().Context()
	if err := s.Sync(ctx); err != nil {
		s.logger.Error("failed to sync tools", "error", err)
		return c.JSON(v1.StatusFor(err), map[string]string{"error": "failed to load tools"})
	}
	ctx = WithLevel(ctx, v1.LevelFromContext(c))
	s.http.ServeHTTP(c.Response(), c.Request().WithContext(ctx))
	return nil
}

// Sync adds registry tools the MCP server has not seen yet.
func (s *Server) Sync(ctx context.Context) error {
	schemas, err := s.service.ListTools(ctx, domain.PermissionElevated)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var added []server.ServerTool
	for _, schema := range schemas {
		name := schema.Function.Name
		if s.known[name] {
			continue
		}
		s.known[name] = true
		added = append(added, server.ServerTool{
			Tool:    mcp.NewToolWithRawSchema(name, schema.Function.Description, schema.Function.Parameters),
			Handler: s.callTool,
		})
	}
	if len(added) > 0 {
		s.mcp.AddTools(added...)
		s.logger.Debug("mcp tools added", "count", len(added))
	}
	return nil
}

func (s *Server) filterTools(ctx context.Context, tools []mcp.Tool) []mcp.Tool {
	level := LevelFrom(ctx)
	out := make([]mcp.Tool, 0, len(tools))
	for _, tool := range tools {
		if s.service.CanExecute(ctx, tool.Name, level) {
			out = append(out, tool)
		}
	}
	return out
}

func (s *Server) callTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := "{}"
	if req.Params.Arguments != nil {
		data, err := json.Marshal(req.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		args = string(data)
	}

	result, err := s.service.InvokeTool(ctx, LevelFrom(ctx), req.Params.Name, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result), nil
}
