package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/thinkarr/internal/domain"
)

func TestListModels(t *testing.T) {
	env := newTestEnvWithEndpoints(t, staticEndpoints{
		{ID: "local", Name: "Ollama", BaseURL: "http://a", Model: "llama3", Enabled: true},
		{ID: "off", Name: "Off", BaseURL: "http://b", Model: "x", Enabled: false},
		{ID: "cloud", Name: "OpenAI", BaseURL: "http://c", Model: "gpt-4o", Enabled: true},
	})

	models, err := env.svc.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.ModelOption{
		{ID: "local:llama3", Label: "Ollama - llama3", EndpointID: "local", Model: "llama3"},
		{ID: "cloud:gpt-4o", Label: "OpenAI - gpt-4o", EndpointID: "cloud", Model: "gpt-4o"},
	}, models)
}

func TestListModelsSingleEndpoint(t *testing.T) {
	env := newTestEnv(t)

	models, err := env.svc.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "llama3", models[0].Label)
	assert.Equal(t, "local:llama3", models[0].ID)
}
