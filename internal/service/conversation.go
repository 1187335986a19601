package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xiaot623/thinkarr/internal/domain"
)

// CreateConversation starts an empty conversation owned by caller.
func (s *Service) CreateConversation(ctx context.Context, caller *domain.User, req domain.CreateConversationRequest) (*domain.Conversation, error) {
	if caller == nil {
		return nil, domain.ErrUnauthorized
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = domain.DefaultConversationTitle
	}
	conv := &domain.Conversation{ID: uuid.NewString(), UserID: caller.ID, Title: title}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns the caller's conversations, most recent first.
func (s *Service) ListConversations(ctx context.Context, caller *domain.User) ([]domain.Conversation, error) {
	if caller == nil {
		return nil, domain.ErrUnauthorized
	}
	convs, err := s.store.ListConversations(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

// GetConversation returns a conversation with its transcript. Admins may
// read any conversation.
func (s *Service) GetConversation(ctx context.Context, caller *domain.User, id string) (*domain.ConversationDetail, error) {
	conv, err := s.conversationFor(ctx, caller, id, true)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return &domain.ConversationDetail{Conversation: *conv, Messages: messages}, nil
}

// RenameConversation changes the title of one of the caller's conversations.
func (s *Service) RenameConversation(ctx context.Context, caller *domain.User, id string, req domain.RenameConversationRequest) (*domain.Conversation, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidRequest)
	}
	conv, err := s.conversationFor(ctx, caller, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateConversationTitle(ctx, id, title); err != nil {
		return nil, fmt.Errorf("failed to rename conversation: %w", err)
	}
	conv.Title = title
	return conv, nil
}

// DeleteConversation removes one of the caller's conversations and its messages.
func (s *Service) DeleteConversation(ctx context.Context, caller *domain.User, id string) error {
	if _, err := s.conversationFor(ctx, caller, id, false); err != nil {
		return err
	}
	if err := s.store.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// conversationFor loads id if caller may see it. Conversations of other
// users are reported as not found.
func (s *Service) conversationFor(ctx context.Context, caller *domain.User, id string, adminRead bool) (*domain.Conversation, error) {
	if caller == nil {
		return nil, domain.ErrUnauthorized
	}
	conv, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	if conv.UserID != caller.ID && !(adminRead && caller.IsAdmin) {
		return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	return conv, nil
}
