package service

import (
	"maps"
	"slices"

	"github.com/xiaot623/thinkarr/internal/adapter/llm"
	"github.com/xiaot623/thinkarr/internal/domain"
)

// toolCallAccumulator assembles streamed tool-call fragments per index.
type toolCallAccumulator struct {
	entries map[int]*domain.ToolCall
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{entries: make(map[int]*domain.ToolCall)}
}

func (a *toolCallAccumulator) add(deltas []llm.ToolCallDelta) {
	for _, d := range deltas {
		entry, ok := a.entries[d.Index]
		if !ok {
			entry = &domain.ToolCall{Type: "function"}
			a.entries[d.Index] = entry
		}
		// Some servers resend the full id with every fragment.
		if d.ID != "" && d.ID != entry.ID {
			entry.ID += d.ID
		}
		entry.Function.Name += d.Name
		entry.Function.Arguments += d.Arguments
	}
}

// calls returns the complete calls ordered by index. Entries that never
// received an id or a name are dropped.
func (a *toolCallAccumulator) calls() []domain.ToolCall {
	var out []domain.ToolCall
	for _, idx := range slices.Sorted(maps.Keys(a.entries)) {
		entry := a.entries[idx]
		if entry.ID == "" || entry.Function.Name == "" {
			continue
		}
		out = append(out, *entry)
	}
	return out
}
