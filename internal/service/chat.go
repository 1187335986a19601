package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/xiaot623/thinkarr/internal/adapter/llm"
	"github.com/xiaot623/thinkarr/internal/domain"
	"github.com/xiaot623/thinkarr/internal/infra/tracer"
)

var errConsumerGone = errors.New("event consumer stopped")

type turn struct {
	conversation *domain.Conversation
	userMessage  string
	resolved     *llm.Resolved
	needsTitle   bool
	logger       *slog.Logger
}

// StartTurn validates req and returns the turn's event sequence. Nothing is
// persisted until the sequence is ranged over. The sequence ends with exactly
// one done or error event unless the consumer stops early or ctx is
// cancelled, in which case the round in progress is discarded.
func (s *Service) StartTurn(ctx context.Context, caller *domain.User, req domain.TurnRequest) (iter.Seq[domain.Event], error) {
	if caller == nil {
		return nil, domain.ErrUnauthorized
	}
	if !req.Normalize() {
		return nil, fmt.Errorf("%w: conversationId and userMessage are required", domain.ErrInvalidRequest)
	}
	conv, err := s.conversationFor(ctx, caller, req.ConversationID, false)
	if err != nil {
		return nil, err
	}

	resolved, err := s.models.Resolve(ctx, req.ModelSelector)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.Populate(ctx); err != nil {
		return nil, fmt.Errorf("failed to load tools: %w", err)
	}

	t := &turn{
		conversation: conv,
		userMessage:  req.UserMessage,
		resolved:     resolved,
		needsTitle:   conv.Title == domain.DefaultConversationTitle,
		logger: s.logger.With(
			"conversation_id", conv.ID,
			"endpoint", resolved.Endpoint.ID,
			"model", resolved.Model,
		),
	}
	return func(yield func(domain.Event) bool) {
		s.runTurn(ctx, t, yield)
	}, nil
}

func (s *Service) runTurn(ctx context.Context, t *turn, yield func(domain.Event) bool) {
	ctx, span := tracer.StartSpan(ctx, "chat.turn",
		tracer.StringAttr("conversation.id", t.conversation.ID),
		tracer.StringAttr("llm.model", t.resolved.Model))
	defer span.End()

	fail := func(err error) {
		tracer.RecordError(span, err)
		t.logger.Error("turn failed", "error", err)
		yield(domain.NewError(err.Error()))
	}

	convID := t.conversation.ID
	if err := s.appendMessage(ctx, &domain.Message{
		ConversationID: convID,
		Role:           domain.RoleUser,
		Content:        t.userMessage,
	}); err != nil {
		fail(fmt.Errorf("failed to save message: %w", err))
		return
	}

	messages, err := s.buildMessages(ctx, convID)
	if err != nil {
		fail(err)
		return
	}
	var schemas []domain.ToolSchema
	if s.tools.HasAny() {
		schemas = s.tools.ListSchemas()
	}

	for round := range MaxToolRounds {
		var text strings.Builder
		acc := newToolCallAccumulator()

		err := t.resolved.Client.StreamChat(ctx, &llm.ChatRequest{
			Model:    t.resolved.Model,
			Messages: messages,
			Tools:    schemas,
		}, func(chunk llm.StreamChunk) error {
			if chunk.Content != "" {
				text.WriteString(chunk.Content)
				if !yield(domain.NewTextDelta(chunk.Content)) {
					return errConsumerGone
				}
			}
			acc.add(chunk.ToolCalls)
			return nil
		})
		if errors.Is(err, errConsumerGone) || ctx.Err() != nil {
			t.logger.Info("turn abandoned", "round", round)
			return
		}
		if err != nil {
			tracer.RecordError(span, err)
			t.logger.Error("model call failed", "round", round, "error", err)
			yield(domain.NewError(err.Error()))
			return
		}

		content := text.String()
		calls := acc.calls()
		if len(calls) == 0 {
			msg := &domain.Message{ConversationID: convID, Role: domain.RoleAssistant, Content: content}
			if err := s.appendMessage(ctx, msg); err != nil {
				fail(fmt.Errorf("failed to save message: %w", err))
				return
			}
			tracer.SetOK(span)
			yield(domain.NewDone(msg.ID))
			if t.needsTitle {
				s.spawnTitle(ctx, convID, t.userMessage)
			}
			return
		}

		blob, err := json.Marshal(calls)
		if err != nil {
			fail(fmt.Errorf("failed to encode tool calls: %w", err))
			return
		}
		if err := s.appendMessage(ctx, &domain.Message{
			ConversationID: convID,
			Role:           domain.RoleAssistant,
			Content:        content,
			ToolCalls:      string(blob),
		}); err != nil {
			fail(fmt.Errorf("failed to save message: %w", err))
			return
		}
		messages = append(messages, llm.Message{Role: domain.RoleAssistant, Content: content, ToolCalls: calls})

		for i, call := range calls {
			if !yield(domain.NewToolCallStart(call)) {
				s.closeUnanswered(ctx, convID, calls[i:], t.logger)
				return
			}
			t.logger.Debug("running tool", "tool", call.Function.Name, "tool_call_id", call.ID)
			result := s.tools.Execute(ctx, call.Function.Name, call.Function.Arguments)
			// The tool has run; its result is recorded even if the caller left.
			if err := s.appendMessage(context.WithoutCancel(ctx), &domain.Message{
				ConversationID: convID,
				Role:           domain.RoleTool,
				Content:        result,
				ToolCallID:     call.ID,
				ToolName:       call.Function.Name,
			}); err != nil {
				s.closeUnanswered(ctx, convID, calls[i:], t.logger)
				fail(fmt.Errorf("failed to save tool result: %w", err))
				return
			}
			if ctx.Err() != nil {
				t.logger.Info("turn abandoned during tool execution", "round", round, "tool", call.Function.Name)
				s.closeUnanswered(ctx, convID, calls[i+1:], t.logger)
				return
			}
			messages = append(messages, llm.Message{Role: domain.RoleTool, Content: result, ToolCallID: call.ID})
			if !yield(domain.NewToolResult(call, result)) {
				s.closeUnanswered(ctx, convID, calls[i+1:], t.logger)
				return
			}
		}
	}

	tracer.RecordError(span, domain.ErrToolCallLimit)
	t.logger.Warn("tool call limit reached", "rounds", MaxToolRounds)
	yield(domain.NewError(domain.ToolCallLimitMessage))
}

func (s *Service) buildMessages(ctx context.Context, conversationID string) ([]llm.Message, error) {
	history, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	services, err := s.settings.ConfiguredServices(ctx)
	if err != nil {
		s.logger.Warn("failed to read configured services", "error", err)
	}
	prompt := llm.Message{Role: domain.RoleSystem, Content: SystemPrompt(services)}
	return append([]llm.Message{prompt}, BuildContext(history)...), nil
}

// closeUnanswered records a cancellation result for tool calls that were
// persisted but never ran, so the stored transcript stays replayable.
func (s *Service) closeUnanswered(ctx context.Context, conversationID string, calls []domain.ToolCall, logger *slog.Logger) {
	ctx = context.WithoutCancel(ctx)
	for _, call := range calls {
		if err := s.appendMessage(ctx, &domain.Message{
			ConversationID: conversationID,
			Role:           domain.RoleTool,
			Content:        `{"error":"cancelled"}`,
			ToolCallID:     call.ID,
			ToolName:       call.Function.Name,
		}); err != nil {
			logger.Warn("failed to record cancelled tool call", "tool_call_id", call.ID, "error", err)
		}
	}
}
