// Package llm talks to OpenAI-compatible chat completion endpoints.
package llm

import "context"

// Client defines the LLM operations the assistant needs.
type Client interface {
	// StreamChat sends a streaming request. callback is invoked for each chunk.
	StreamChat(ctx context.Context, req *ChatRequest, callback StreamCallback) error

	// Complete sends a non-streaming request.
	Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// ListModels retrieves the models the endpoint serves.
	ListModels(ctx context.Context) ([]Model, error)
}

var (
	_ Client = (*OpenAIClient)(nil)
	_ Client = (*MockClient)(nil)
	_ Client = (*BreakerClient)(nil)
)
