package domain

// ToolCallLimitMessage is the error text emitted when a turn exhausts its rounds.
const ToolCallLimitMessage = "Tool call limit reached"

// Event is one progress item of a chat turn.
type Event interface {
	EventType() EventType
}

// TextDeltaEvent carries incremental assistant text.
type TextDeltaEvent struct {
	Type    EventType `json:"type"`
	Content string    `json:"content"`
}

// ToolCallStartEvent is emitted before a tool runs.
type ToolCallStartEvent struct {
	Type       EventType `json:"type"`
	ToolCallID string    `json:"toolCallId"`
	ToolName   string    `json:"toolName"`
	Arguments  string    `json:"arguments"`
}

// ToolResultEvent is emitted after a tool finished. Result may encode {"error": ...}.
type ToolResultEvent struct {
	Type       EventType `json:"type"`
	ToolCallID string    `json:"toolCallId"`
	ToolName   string    `json:"toolName"`
	Result     string    `json:"result"`
}

// ErrorEvent terminates a failed turn.
type ErrorEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

// DoneEvent terminates a successful turn.
type DoneEvent struct {
	Type      EventType `json:"type"`
	MessageID string    `json:"messageId"`
}

func (TextDeltaEvent) EventType() EventType     { return EventTypeTextDelta }
func (ToolCallStartEvent) EventType() EventType { return EventTypeToolCallStart }
func (ToolResultEvent) EventType() EventType    { return EventTypeToolResult }
func (ErrorEvent) EventType() EventType         { return EventTypeError }
func (DoneEvent) EventType() EventType          { return EventTypeDone }

func NewTextDelta(content string) TextDeltaEvent {
	return TextDeltaEvent{Type: EventTypeTextDelta, Content: content}
}

func NewToolCallStart(call ToolCall) ToolCallStartEvent {
	return ToolCallStartEvent{
		Type:       EventTypeToolCallStart,
		ToolCallID: call.ID,
		ToolName:   call.Function.Name,
		Arguments:  call.Function.Arguments,
	}
}

func NewToolResult(call ToolCall, result string) ToolResultEvent {
	return ToolResultEvent{
		Type:       EventTypeToolResult,
		ToolCallID: call.ID,
		ToolName:   call.Function.Name,
		Result:     result,
	}
}

func NewError(message string) ErrorEvent {
	return ErrorEvent{Type: EventTypeError, Message: message}
}

func NewDone(messageID string) DoneEvent {
	return DoneEvent{Type: EventTypeDone, MessageID: messageID}
}

// IsTerminal reports whether ev ends a turn.
func IsTerminal(ev Event) bool {
	t := ev.EventType()
	return t == EventTypeError || t == EventTypeDone
}
