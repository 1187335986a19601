// Package testenv assembles a fully wired service for transport tests.
package testenv

import (
	"context"
	"testing"
	"time"

	"github.com/xiaot623/thinkarr/internal/adapter/llm"
	"github.com/xiaot623/thinkarr/internal/domain"
	"github.com/xiaot623/thinkarr/internal/repository"
	"github.com/xiaot623/thinkarr/internal/service"
	"github.com/xiaot623/thinkarr/internal/settings"
	"github.com/xiaot623/thinkarr/internal/tools"
	"github.com/xiaot623/thinkarr/policy"
	"github.com/xiaot623/thinkarr/tests/helpers"
)

// Token is the bearer token external tool callers use in tests.
const Token = "test-token"

// Env is a service backed by an in-memory store and a scripted LLM.
type Env struct {
	Service  *service.Service
	Store    *repository.SQLiteStore
	Settings *settings.Settings
	Registry *tools.Registry
	LLM      *llm.MockClient
	Admin    *domain.User
	User     *domain.User
}

// New builds an Env whose LLM plays rounds in order.
func New(t *testing.T, rounds ...llm.MockRound) *Env {
	t.Helper()
	ctx := context.Background()

	store := helpers.NewTestSQLiteStore(t)
	st := settings.New(store, nil)
	if err := st.SetEndpoints(ctx, []domain.LLMEndpoint{
		{ID: "local", Name: "Local", BaseURL: "http://llm.test/v1", Model: "llama3", Enabled: true},
	}); err != nil {
		t.Fatalf("SetEndpoints failed: %v", err)
	}
	if err := st.Set(ctx, settings.KeyMCPBearerToken, Token); err != nil {
		t.Fatalf("Set token failed: %v", err)
	}

	mock := llm.NewMockClient(rounds...)
	resolver := llm.NewResolver(st, func(domain.LLMEndpoint) llm.Client { return mock })
	registry := tools.NewRegistry(time.Second, nil)
	catalog := tools.NewCatalog(registry, st, tools.Providers{}, nil)
	gate, err := policy.NewDefaultGate(ctx)
	if err != nil {
		t.Fatalf("NewDefaultGate failed: %v", err)
	}

	svc := service.New(service.Deps{
		Store:    store,
		Settings: st,
		Catalog:  catalog,
		Tools:    registry,
		Models:   resolver,
		Gate:     gate,
	})
	t.Cleanup(svc.Wait)

	admin, err := svc.EnsureAdmin(ctx, "admin")
	if err != nil {
		t.Fatalf("EnsureAdmin failed: %v", err)
	}
	user := helpers.NewTestUser(t, store, "u1", "Alice", false)

	return &Env{
		Service:  svc,
		Store:    store,
		Settings: st,
		Registry: registry,
		LLM:      mock,
		Admin:    admin,
		User:     user,
	}
}

type searchArgs struct {
	Query string `json:"query"`
}

// RegisterSearchTool registers a tool that echoes its query back.
func (e *Env) RegisterSearchTool(t *testing.T, name string) {
	t.Helper()
	tool := tools.Define(name, "Search for a title.", func(_ context.Context, args searchArgs) (any, error) {
		return map[string]string{"query": args.Query}, nil
	})
	if err := e.Registry.Register(tool); err != nil {
		t.Fatalf("Register %s failed: %v", name, err)
	}
}

// NewConversation creates a conversation owned by owner.
func (e *Env) NewConversation(t *testing.T, owner *domain.User, title string) *domain.Conversation {
	t.Helper()
	conv, err := e.Service.CreateConversation(context.Background(), owner, domain.CreateConversationRequest{Title: title})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	return conv
}
