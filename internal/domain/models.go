package domain

import (
	"encoding/json"
	"time"
)

// User is a person allowed to chat. Admins get elevated tool access.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// PermissionLevel maps the user to an external tool permission level.
func (u *User) PermissionLevel() PermissionLevel {
	if u == nil || u.IsAdmin {
		return PermissionElevated
	}
	return PermissionScoped
}

// Conversation is a titled, owned sequence of messages.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one persisted transcript entry. Empty strings are stored as NULL.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content,omitempty"`
	ToolCalls      string    `json:"tool_calls,omitempty"`
	ToolCallID     string    `json:"tool_call_id,omitempty"`
	ToolName       string    `json:"tool_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction carries the tool name and its JSON argument text.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSchema is a tool definition in function-calling shape.
type ToolSchema struct {
	Type     string             `json:"type"`
	Function ToolSchemaFunction `json:"function"`
}

// ToolSchemaFunction describes a callable function to the model.
type ToolSchemaFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// LLMEndpoint is one configured OpenAI-compatible endpoint.
type LLMEndpoint struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	BaseURL string `json:"baseUrl"`
	APIKey  string `json:"apiKey,omitempty"`
	Model   string `json:"model"`
	Enabled bool   `json:"enabled"`
}

// ServiceCredentials are the connection details of a media service.
type ServiceCredentials struct {
	URL string
	Key string
}

// ModelOption is a selectable "<endpointId>:<model>" entry.
type ModelOption struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	EndpointID string `json:"endpoint_id"`
	Model      string `json:"model"`
}

// ServiceStatus is the health of one integration.
type ServiceStatus struct {
	Name       string        `json:"name"`
	Status     ServiceHealth `json:"status"`
	Configured bool          `json:"configured"`
	Message    string        `json:"message,omitempty"`
	LatencyMs  int64         `json:"latency_ms,omitempty"`
}
