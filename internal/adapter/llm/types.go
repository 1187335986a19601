package llm

import "github.com/xiaot623/thinkarr/internal/domain"

// Message is one entry of the provider conversation.
type Message struct {
	Role       domain.Role
	Content    string
	ToolCalls  []domain.ToolCall
	ToolCallID string
}

// ChatRequest is a chat completion request.
type ChatRequest struct {
	Model     string
	Messages  []Message
	Tools     []domain.ToolSchema
	MaxTokens int
}

// ToolCallDelta is a fragment of a streamed tool call. Fragments sharing an
// Index belong to the same call.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// StreamChunk is one streamed delta.
type StreamChunk struct {
	Content   string
	ToolCalls []ToolCallDelta
}

// StreamCallback receives chunks in arrival order. Returning an error aborts
// the stream and is returned from StreamChat.
type StreamCallback func(StreamChunk) error

// ChatResponse is a non-streaming completion.
type ChatResponse struct {
	Content string
}

// Model is a model advertised by an endpoint.
type Model struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by,omitempty"`
}
