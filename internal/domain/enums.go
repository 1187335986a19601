// Package domain defines the core domain models for the assistant.
package domain

// Role is the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// EventType discriminates turn events on the wire.
type EventType string

const (
	EventTypeTextDelta     EventType = "text_delta"
	EventTypeToolCallStart EventType = "tool_call_start"
	EventTypeToolResult    EventType = "tool_result"
	EventTypeError         EventType = "error"
	EventTypeDone          EventType = "done"
)

// PermissionLevel is the access level of an external tool caller.
type PermissionLevel string

const (
	// PermissionElevated may run every tool.
	PermissionElevated PermissionLevel = "elevated"
	// PermissionScoped may run read-only and self-service tools only.
	PermissionScoped PermissionLevel = "scoped"
)

// ServiceName identifies a media service integration.
type ServiceName string

const (
	ServicePlex      ServiceName = "plex"
	ServiceSonarr    ServiceName = "sonarr"
	ServiceRadarr    ServiceName = "radarr"
	ServiceOverseerr ServiceName = "overseerr"
)

// AllServices lists the media services in display order.
var AllServices = []ServiceName{ServicePlex, ServiceSonarr, ServiceRadarr, ServiceOverseerr}

// ServiceHealth is the traffic-light state reported by the status check.
type ServiceHealth string

const (
	HealthGreen ServiceHealth = "green"
	HealthAmber ServiceHealth = "amber"
	HealthRed   ServiceHealth = "red"
)

// DefaultConversationTitle marks a conversation that has not been titled yet.
const DefaultConversationTitle = "New Chat"
