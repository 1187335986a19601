package service

import (
	"context"
	"strings"

	"github.com/xiaot623/thinkarr/internal/adapter/llm"
	"github.com/xiaot623/thinkarr/internal/domain"
)

const titlePrompt = "Generate a very short summary (3-6 words, no quotes) summarizing this chat message. " +
	"Most conversations will be about TV and Movies and/or their availability in a Media Library so assume this is the case. " +
	"If the chat was about a specific title, reply with ONLY the title and the year e.g. Ghostbusters (1984), nothing else. " +
	"If the chat was about multiple titles or something else, reply with ONLY the short summary, nothing else."

const titleMaxTokens = 20

// spawnTitle names the conversation in the background. It outlives the
// request that started it and never reports failure.
func (s *Service) spawnTitle(ctx context.Context, conversationID, firstMessage string) {
	ctx = context.WithoutCancel(ctx)
	s.spawn(func() {
		ctx, cancel := context.WithTimeout(ctx, s.titleTimeout)
		defer cancel()
		if err := s.generateTitle(ctx, conversationID, firstMessage); err != nil {
			s.logger.Warn("title generation failed", "conversation_id", conversationID, "error", err)
		}
	})
}

func (s *Service) generateTitle(ctx context.Context, conversationID, firstMessage string) error {
	resolved, err := s.models.Default(ctx)
	if err != nil {
		return err
	}
	resp, err := resolved.Client.Complete(ctx, &llm.ChatRequest{
		Model: resolved.Model,
		Messages: []llm.Message{
			{Role: domain.RoleSystem, Content: titlePrompt},
			{Role: domain.RoleUser, Content: firstMessage},
		},
		MaxTokens: titleMaxTokens,
	})
	if err != nil {
		return err
	}
	title := strings.TrimSpace(resp.Content)
	if title == "" {
		return nil
	}
	changed, err := s.store.ReplaceConversationTitle(ctx, conversationID, domain.DefaultConversationTitle, title)
	if err != nil {
		return err
	}
	if !changed {
		s.logger.Debug("conversation renamed during title generation", "conversation_id", conversationID)
	}
	return nil
}
