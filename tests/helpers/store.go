// Package helpers holds fixtures shared by package tests.
package helpers

import (
	"context"
	"testing"

	"github.com/xiaot623/thinkarr/internal/domain"
	"github.com/xiaot623/thinkarr/internal/repository"
)

// NewTestSQLiteStore opens an in-memory store that is closed with the test.
func NewTestSQLiteStore(t testing.TB) *repository.SQLiteStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// NewTestUser stores a user and returns it.
func NewTestUser(t testing.TB, store repository.Store, id, name string, admin bool) *domain.User {
	t.Helper()

	user := &domain.User{ID: id, Name: name, IsAdmin: admin}
	if err := store.UpsertUser(context.Background(), user); err != nil {
		t.Fatalf("failed to upsert user %s: %v", id, err)
	}
	return user
}
