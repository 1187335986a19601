package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xiaot623/thinkarr/internal/adapter/llm"
	"github.com/xiaot623/thinkarr/internal/domain"
	"github.com/xiaot623/thinkarr/internal/repository"
	"github.com/xiaot623/thinkarr/internal/tools"
	"github.com/xiaot623/thinkarr/policy"
	"github.com/xiaot623/thinkarr/tests/helpers"
)

type fakeSettings struct {
	configured []domain.ServiceName
	token      string
	err        error
}

func (f *fakeSettings) Service(_ context.Context, name domain.ServiceName) (domain.ServiceCredentials, error) {
	if f.err != nil {
		return domain.ServiceCredentials{}, f.err
	}
	for _, c := range f.configured {
		if c == name {
			return domain.ServiceCredentials{URL: "http://" + string(name), Key: "k"}, nil
		}
	}
	return domain.ServiceCredentials{}, fmt.Errorf("%s: %w", name, domain.ErrServiceNotConfigured)
}

func (f *fakeSettings) ConfiguredServices(context.Context) ([]domain.ServiceName, error) {
	return f.configured, f.err
}

func (f *fakeSettings) MCPToken(context.Context) (string, error) {
	return f.token, f.err
}

type fakeCatalog struct {
	calls int
	err   error
}

func (f *fakeCatalog) Populate(context.Context) error {
	f.calls++
	return f.err
}

type staticEndpoints []domain.LLMEndpoint

func (s staticEndpoints) Endpoints(context.Context) ([]domain.LLMEndpoint, error) {
	return s, nil
}

type testEnv struct {
	svc      *Service
	store    *repository.SQLiteStore
	mock     *llm.MockClient
	registry *tools.Registry
	settings *fakeSettings
	catalog  *fakeCatalog
	user     *domain.User
	admin    *domain.User
}

func defaultEndpoints() staticEndpoints {
	return staticEndpoints{{ID: "local", Name: "Local", BaseURL: "http://llm", Model: "llama3", Enabled: true}}
}

func newTestEnv(t *testing.T, rounds ...llm.MockRound) *testEnv {
	t.Helper()
	return newTestEnvWithEndpoints(t, defaultEndpoints(), rounds...)
}

func newTestEnvWithEndpoints(t *testing.T, endpoints staticEndpoints, rounds ...llm.MockRound) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := helpers.NewTestSQLiteStore(t)
	mock := llm.NewMockClient(rounds...)
	resolver := llm.NewResolver(endpoints, func(domain.LLMEndpoint) llm.Client { return mock })
	registry := tools.NewRegistry(0, nil)
	gate, err := policy.NewDefaultGate(ctx)
	require.NoError(t, err)

	env := &testEnv{
		store:    store,
		mock:     mock,
		registry: registry,
		settings: &fakeSettings{configured: []domain.ServiceName{domain.ServicePlex}, token: "secret-token"},
		catalog:  &fakeCatalog{},
		user:     helpers.NewTestUser(t, store, "u1", "Alice", false),
		admin:    helpers.NewTestUser(t, store, "admin", "Admin", true),
	}
	env.svc = New(Deps{
		Store:    store,
		Settings: env.settings,
		Catalog:  env.catalog,
		Tools:    registry,
		Models:   resolver,
		Gate:     gate,
	})
	return env
}

func (e *testEnv) registerTool(t *testing.T, name string, fn func(args map[string]any) (any, error)) {
	t.Helper()
	require.NoError(t, e.registry.Register(tools.Tool{
		Name:        name,
		Description: "test tool " + name,
		Handler: func(_ context.Context, raw json.RawMessage) (any, error) {
			var args map[string]any
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, err
			}
			return fn(args)
		},
	}))
}

func (e *testEnv) newConversation(t *testing.T, owner *domain.User, title string) *domain.Conversation {
	t.Helper()
	conv, err := e.svc.CreateConversation(context.Background(), owner, domain.CreateConversationRequest{Title: title})
	require.NoError(t, err)
	return conv
}

func (e *testEnv) messages(t *testing.T, conversationID string) []domain.Message {
	t.Helper()
	msgs, err := e.store.ListMessages(context.Background(), conversationID)
	require.NoError(t, err)
	return msgs
}

func collect(seq func(func(domain.Event) bool)) []domain.Event {
	var events []domain.Event
	for ev := range seq {
		events = append(events, ev)
	}
	return events
}

func eventTypes(events []domain.Event) []domain.EventType {
	out := make([]domain.EventType, len(events))
	for i, ev := range events {
		out[i] = ev.EventType()
	}
	return out
}
