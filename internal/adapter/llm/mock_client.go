package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/xiaot623/thinkarr/internal/domain"
)

// MockRound scripts one StreamChat call.
type MockRound struct {
	Chunks []StreamChunk
	// Err is returned after the chunks are delivered.
	Err error
	// Block waits for cancellation after the chunks are delivered.
	Block bool
}

// TextRound is a round that streams text split into the given pieces.
func TextRound(pieces ...string) MockRound {
	round := MockRound{}
	for _, p := range pieces {
		round.Chunks = append(round.Chunks, StreamChunk{Content: p})
	}
	return round
}

// ToolRound is a round that requests one tool call per delta.
func ToolRound(calls ...ToolCallDelta) MockRound {
	return MockRound{Chunks: []StreamChunk{{ToolCalls: calls}}}
}

// MockClient is a deterministic Client. Scripted rounds are consumed in
// order; once they run out it echoes the last user message.
type MockClient struct {
	mu          sync.Mutex
	rounds      []MockRound
	completion  string
	completeErr error
	requests    []ChatRequest
	completes   []ChatRequest
}

// NewMockClient creates a mock that plays rounds in order.
func NewMockClient(rounds ...MockRound) *MockClient {
	return &MockClient{rounds: rounds, completion: "Mock Chat"}
}

// SetCompletion scripts the result of Complete.
func (m *MockClient) SetCompletion(content string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completion = content
	m.completeErr = err
}

// Requests returns the StreamChat requests received so far.
func (m *MockClient) Requests() []ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChatRequest(nil), m.requests...)
}

// CompleteRequests returns the Complete requests received so far.
func (m *MockClient) CompleteRequests() []ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChatRequest(nil), m.completes...)
}

// StreamChat plays the next scripted round.
func (m *MockClient) StreamChat(ctx context.Context, req *ChatRequest, callback StreamCallback) error {
	m.mu.Lock()
	m.requests = append(m.requests, cloneRequest(req))
	var round MockRound
	if len(m.rounds) > 0 {
		round = m.rounds[0]
		m.rounds = m.rounds[1:]
	} else {
		round = echoRound(req)
	}
	m.mu.Unlock()

	for _, chunk := range round.Chunks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := callback(chunk); err != nil {
			return err
		}
	}
	if round.Block {
		<-ctx.Done()
		return ctx.Err()
	}
	return round.Err
}

// Complete returns the scripted completion.
func (m *MockClient) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completes = append(m.completes, cloneRequest(req))
	if m.completeErr != nil {
		return nil, m.completeErr
	}
	return &ChatResponse{Content: m.completion}, nil
}

// ListModels returns a fixed model list.
func (m *MockClient) ListModels(context.Context) ([]Model, error) {
	return []Model{{ID: "mock-model", OwnedBy: "mock"}}, nil
}

func echoRound(req *ChatRequest) MockRound {
	var last string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == domain.RoleUser {
			last = req.Messages[i].Content
			break
		}
	}
	reply := "[MOCK] This is a mock response."
	if last != "" {
		reply = fmt.Sprintf("[MOCK] Received your message: %q.", truncate(last, 100))
	}
	return TextRound(splitIntoChunks(reply, 10)...)
}

func cloneRequest(req *ChatRequest) ChatRequest {
	out := *req
	out.Messages = append([]Message(nil), req.Messages...)
	out.Tools = append([]domain.ToolSchema(nil), req.Tools...)
	return out
}

func splitIntoChunks(s string, size int) []string {
	r := []rune(s)
	var chunks []string
	for len(r) > size {
		chunks = append(chunks, string(r[:size]))
		r = r[size:]
	}
	return append(chunks, string(r))
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
