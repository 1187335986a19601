package service

import (
	"encoding/json"

	"github.com/xiaot623/thinkarr/internal/adapter/llm"
	"github.com/xiaot623/thinkarr/internal/domain"
)

// BuildContext turns stored history into provider messages. Rows a provider
// would reject are skipped: empty user or system rows, assistant rows with
// neither text nor tool calls, and tool rows missing their call id or
// content. A malformed tool_calls blob is ignored, keeping the text.
func BuildContext(history []domain.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, row := range history {
		switch row.Role {
		case domain.RoleUser, domain.RoleSystem:
			if row.Content == "" {
				continue
			}
			out = append(out, llm.Message{Role: row.Role, Content: row.Content})
		case domain.RoleAssistant:
			msg := llm.Message{Role: domain.RoleAssistant, Content: row.Content}
			if row.ToolCalls != "" {
				var calls []domain.ToolCall
				if err := json.Unmarshal([]byte(row.ToolCalls), &calls); err == nil {
					msg.ToolCalls = calls
				}
			}
			if msg.Content == "" && len(msg.ToolCalls) == 0 {
				continue
			}
			out = append(out, msg)
		case domain.RoleTool:
			if row.ToolCallID == "" || row.Content == "" {
				continue
			}
			out = append(out, llm.Message{Role: domain.RoleTool, Content: row.Content, ToolCallID: row.ToolCallID})
		}
	}
	return out
}
