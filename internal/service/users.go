package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/xiaot623/thinkarr/internal/domain"
)

// EnsureAdmin creates or refreshes the bootstrap admin user.
func (s *Service) EnsureAdmin(ctx context.Context, userID string) (*domain.User, error) {
	user := &domain.User{ID: userID, Name: "Admin", IsAdmin: true}
	if err := s.store.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to upsert admin user: %w", err)
	}
	return user, nil
}

// Caller resolves the user behind a chat API request.
func (s *Service) Caller(ctx context.Context, userID string) (*domain.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: unknown user %s", domain.ErrUnauthorized, userID)
	}
	return user, nil
}

// ToolCallerLevel authenticates an external tool caller by bearer token and
// returns its permission level. Without a user id the caller acts as the
// server owner; a user id that is not an admin is scoped.
func (s *Service) ToolCallerLevel(ctx context.Context, token, userID string) (domain.PermissionLevel, error) {
	expected, err := s.settings.MCPToken(ctx)
	if err != nil {
		return "", err
	}
	if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return "", domain.ErrUnauthorized
	}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.PermissionElevated, nil
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return domain.PermissionScoped, nil
	}
	return user.PermissionLevel(), nil
}
