package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/thinkarr/internal/domain"
	v1 "github.com/xiaot623/thinkarr/internal/transport/http/v1"
	"github.com/xiaot623/thinkarr/tests/testenv"
)

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type callResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func newTestServer(t *testing.T) (*Server, *testenv.Env) {
	t.Helper()
	env := testenv.New(t)
	env.RegisterSearchTool(t, "plex_search_library")
	env.RegisterSearchTool(t, "plex_get_recently_added")
	s := NewServer(env.Service, "test", nil)
	require.NoError(t, s.Sync(context.Background()))
	return s, env
}

func handle(t *testing.T, s *Server, level domain.PermissionLevel, msg string) rpcResponse {
	t.Helper()
	out := s.MCPServer().HandleMessage(WithLevel(context.Background(), level), json.RawMessage(msg))
	data, err := json.Marshal(out)
	require.NoError(t, err)
	var resp rpcResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func listedNames(t *testing.T, resp rpcResponse) []string {
	t.Helper()
	require.Nil(t, resp.Error)
	var result struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	return names
}

func TestListToolsFilteredByLevel(t *testing.T) {
	s, _ := newTestServer(t)
	const list = `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`

	elevated := listedNames(t, handle(t, s, domain.PermissionElevated, list))
	assert.ElementsMatch(t, []string{"plex_search_library", "plex_get_recently_added"}, elevated)

	scoped := listedNames(t, handle(t, s, domain.PermissionScoped, list))
	assert.Equal(t, []string{"plex_search_library"}, scoped)
}

func TestSyncIsIdempotent(t *testing.T) {
	s, env := newTestServer(t)
	require.NoError(t, s.Sync(context.Background()))
	env.RegisterSearchTool(t, "radarr_search_movie")
	require.NoError(t, s.Sync(context.Background()))

	names := listedNames(t, handle(t, s, domain.PermissionElevated, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	assert.Len(t, names, 3)
	assert.Contains(t, names, "radarr_search_movie")
}

func TestCallTool(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name      string
		level     domain.PermissionLevel
		msg       string
		wantError bool
		wantText  string
	}{
		{
			name:     "allowed",
			level:    domain.PermissionScoped,
			msg:      `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"plex_search_library","arguments":{"query":"Alien"}}}`,
			wantText: `{"query":"Alien"}`,
		},
		{
			name:      "denied",
			level:     domain.PermissionScoped,
			msg:       `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"plex_get_recently_added","arguments":{"query":"x"}}}`,
			wantError: true,
			wantText:  "permission denied",
		},
		{
			name:     "invalid arguments",
			level:    domain.PermissionElevated,
			msg:      `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"plex_search_library","arguments":{"query":7}}}`,
			wantText: "invalid arguments",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := handle(t, s, tt.level, tt.msg)
			require.Nil(t, resp.Error)

			var result callResult
			require.NoError(t, json.Unmarshal(resp.Result, &result))
			assert.Equal(t, tt.wantError, result.IsError)
			require.Len(t, result.Content, 1)
			assert.Equal(t, "text", result.Content[0].Type)
			assert.Contains(t, result.Content[0].Text, strings.Trim(tt.wantText, "{}"))
		})
	}
}

func TestLevelFromDefaultsToScoped(t *testing.T) {
	assert.Equal(t, domain.PermissionScoped, LevelFrom(context.Background()))
	assert.Equal(t, domain.PermissionElevated, LevelFrom(WithLevel(context.Background(), domain.PermissionElevated)))
}

func TestHTTPEndpoint(t *testing.T) {
	s, env := newTestServer(t)
	e := echo.New()
	s.RegisterRoutes(e, v1.NewHandler(env.Service, nil).RequireToolCaller)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	post := func(t *testing.T, token, body string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodPost, srv.URL+Path, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json, text/event-stream")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	const initialize = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`

	t.Run("Unauthorized", func(t *testing.T) {
		resp := post(t, "wrong", initialize)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Initialize", func(t *testing.T) {
		resp := post(t, testenv.Token, initialize)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body rpcResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Nil(t, body.Error)
		assert.Contains(t, string(body.Result), `"thinkarr"`)
	})
}
