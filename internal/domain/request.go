package domain

import (
	"encoding/json"
	"strings"
)

// TurnRequest starts one chat turn.
type TurnRequest struct {
	ConversationID string `json:"conversationId"`
	UserMessage    string `json:"userMessage"`
	ModelSelector  string `json:"modelSelector,omitempty"`
}

// Normalize trims the message and reports whether the request is usable.
func (r *TurnRequest) Normalize() bool {
	r.ConversationID = strings.TrimSpace(r.ConversationID)
	r.UserMessage = strings.TrimSpace(r.UserMessage)
	r.ModelSelector = strings.TrimSpace(r.ModelSelector)
	return r.ConversationID != "" && r.UserMessage != ""
}

// CreateConversationRequest creates an empty conversation.
type CreateConversationRequest struct {
	Title string `json:"title,omitempty"`
}

// RenameConversationRequest changes a conversation title.
type RenameConversationRequest struct {
	Title string `json:"title"`
}

// ConversationDetail is a conversation with its transcript.
type ConversationDetail struct {
	Conversation
	Messages []Message `json:"messages"`
}

// ToolInvokeRequest is the body of an external tool invocation.
// Arguments may be a JSON object or a string holding JSON.
type ToolInvokeRequest struct {
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ArgumentsText returns the argument JSON text.
func (r ToolInvokeRequest) ArgumentsText() string {
	raw := strings.TrimSpace(string(r.Arguments))
	if raw == "" || raw == "null" {
		return "{}"
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err == nil {
			return s
		}
	}
	return raw
}

// ToolInvokeResponse is the result of an external tool invocation.
type ToolInvokeResponse struct {
	Tool   string          `json:"tool"`
	Result json.RawMessage `json:"result"`
}

// ToolListResponse lists the tools visible to an external caller.
type ToolListResponse struct {
	Tools []ToolSchema `json:"tools"`
}
