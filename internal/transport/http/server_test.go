package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/thinkarr/tests/testenv"
)

func TestNewServerRoutes(t *testing.T) {
	env := testenv.New(t)
	e := NewServer(env.Service, nil)

	routes := make(map[string]bool)
	for _, r := range e.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	assert.True(t, routes["GET /health"])
	assert.True(t, routes["POST /v1/chat"])
	assert.True(t, routes["GET /v1/chat/ws"])
	assert.True(t, routes["POST /mcp"])
	assert.True(t, routes["GET /v1/tools"])
}

func TestNewServerServesHealthAndAuth(t *testing.T) {
	env := testenv.New(t)
	srv := httptest.NewServer(NewServer(env.Service, nil))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/conversations")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/conversations", nil)
	require.NoError(t, err)
	req.Header.Set("X-User-Id", env.User.ID)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
