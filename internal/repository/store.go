// Package repository persists conversations, messages, users and settings.
package repository

import (
	"context"

	"github.com/xiaot623/thinkarr/internal/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	// User operations
	UpsertUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// Conversation operations
	CreateConversation(ctx context.Context, conv *domain.Conversation) error
	GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error)
	UpdateConversationTitle(ctx context.Context, conversationID, title string) error
	ReplaceConversationTitle(ctx context.Context, conversationID, from, to string) (bool, error)
	DeleteConversation(ctx context.Context, conversationID string) error

	// Message operations
	AppendMessage(ctx context.Context, message *domain.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error)

	// Settings operations
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
	SetSettingIfAbsent(ctx context.Context, key, value string) (bool, error)
	ListSettings(ctx context.Context) (map[string]string, error)

	// Lifecycle
	Close() error
}
