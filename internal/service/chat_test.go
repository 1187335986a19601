package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/thinkarr/internal/adapter/llm"
	"github.com/xiaot623/thinkarr/internal/domain"
)

func TestStartTurnFinalAnswer(t *testing.T) {
	env := newTestEnv(t, llm.TextRound("Hello", " there"))
	env.mock.SetCompletion("  Ghostbusters (1984)\n", nil)
	conv := env.newConversation(t, env.user, "")
	ctx := context.Background()

	seq, err := env.svc.StartTurn(ctx, env.user, domain.TurnRequest{
		ConversationID: conv.ID,
		UserMessage:    "  tell me about ghostbusters  ",
	})
	require.NoError(t, err)
	events := collect(seq)

	require.Equal(t, []domain.EventType{
		domain.EventTypeTextDelta, domain.EventTypeTextDelta, domain.EventTypeDone,
	}, eventTypes(events))
	assert.Equal(t, "Hello", events[0].(domain.TextDeltaEvent).Content)

	msgs := env.messages(t, conv.ID)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "tell me about ghostbusters", msgs[0].Content)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello there", msgs[1].Content)
	assert.Equal(t, msgs[1].ID, events[2].(domain.DoneEvent).MessageID)

	reqs := env.mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "llama3", reqs[0].Model)
	require.Len(t, reqs[0].Messages, 2)
	assert.Equal(t, domain.RoleSystem, reqs[0].Messages[0].Role)
	assert.Contains(t, reqs[0].Messages[0].Content, "Plex (library search")
	assert.Empty(t, reqs[0].Tools)
	assert.Equal(t, 1, env.catalog.calls)

	env.svc.Wait()
	got, err := env.store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ghostbusters (1984)", got.Title)

	titleReqs := env.mock.CompleteRequests()
	require.Len(t, titleReqs, 1)
	assert.Equal(t, 20, titleReqs[0].MaxTokens)
	assert.Equal(t, titlePrompt, titleReqs[0].Messages[0].Content)
	assert.Equal(t, "tell me about ghostbusters", titleReqs[0].Messages[1].Content)
}

func TestStartTurnKeepsExistingTitle(t *testing.T) {
	env := newTestEnv(t, llm.TextRound("ok"))
	conv := env.newConversation(t, env.user, "Weekend movies")

	seq, err := env.svc.StartTurn(context.Background(), env.user, domain.TurnRequest{ConversationID: conv.ID, UserMessage: "hi"})
	require.NoError(t, err)
	collect(seq)
	env.svc.Wait()

	assert.Empty(t, env.mock.CompleteRequests())
	got, err := env.store.GetConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Weekend movies", got.Title)
}

func TestStartTurnTitleFailureIsSilent(t *testing.T) {
	env := newTestEnv(t, llm.TextRound("ok"))
	env.mock.SetCompletion("", errors.New("endpoint down"))
	conv := env.newConversation(t, env.user, "")

	seq, err := env.svc.StartTurn(context.Background(), env.user, domain.TurnRequest{ConversationID: conv.ID, UserMessage: "hi"})
	require.NoError(t, err)
	events := collect(seq)
	env.svc.Wait()

	assert.Equal(t, domain.EventTypeDone, events[len(events)-1].EventType())
	got, err := env.store.GetConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultConversationTitle, got.Title)
}

func TestStartTurnTitleStartsAfterDone(t *testing.T) {
	env := newTestEnv(t, llm.TextRound("ok"))
	env.mock.SetCompletion("Greetings", nil)
	conv := env.newConversation(t, env.user, "")

	seq, err := env.svc.StartTurn(context.Background(), env.user, domain.TurnRequest{ConversationID: conv.ID, UserMessage: "hi"})
	require.NoError(t, err)
	for ev := range seq {
		if ev.EventType() == domain.EventTypeDone {
			assert.Empty(t, env.mock.CompleteRequests())
		}
	}
	env.svc.Wait()
	assert.Len(t, env.mock.CompleteRequests(), 1)
}

func TestGenerateTitleKeepsUserRename(t *testing.T) {
	env := newTestEnv(t)
	env.mock.SetCompletion("Ghostbusters (1984)", nil)
	conv := env.newConversation(t, env.user, "")
	ctx := context.Background()

	_, err := env.svc.RenameConversation(ctx, env.user, conv.ID, domain.RenameConversationRequest{Title: "Comedy picks"})
	require.NoError(t, err)
	require.NoError(t, env.svc.generateTitle(ctx, conv.ID, "ghostbusters?"))

	got, err := env.store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Comedy picks", got.Title)
}

func TestStartTurnWithToolCalls(t *testing.T) {
	env := newTestEnv(t,
		llm.MockRound{Chunks: []llm.StreamChunk{
			{Content: "Checking."},
			{ToolCalls: []llm.ToolCallDelta{{Index: 0, ID: "call_1", Name: "plex_check_", Arguments: `{"title":`}}},
			{ToolCalls: []llm.ToolCallDelta{{Index: 0, ID: "call_1", Name: "availability", Arguments: `"Dune"}`}}},
		}},
		llm.TextRound("Dune is available."),
	)
	var gotTitle any
	env.registerTool(t, "plex_check_availability", func(args map[string]any) (any, error) {
		gotTitle = args["title"]
		return map[string]any{"available": true}, nil
	})
	conv := env.newConversation(t, env.user, "Dune")

	seq, err := env.svc.StartTurn(context.Background(), env.user, domain.TurnRequest{ConversationID: conv.ID, UserMessage: "Is Dune on Plex?"})
	require.NoError(t, err)
	events := collect(seq)

	require.Equal(t, []domain.EventType{
		domain.EventTypeTextDelta,
		domain.EventTypeToolCallStart,
		domain.EventTypeToolResult,
		domain.EventTypeTextDelta,
		domain.EventTypeDone,
	}, eventTypes(events))
	start := events[1].(domain.ToolCallStartEvent)
	assert.Equal(t, "call_1", start.ToolCallID)
	assert.Equal(t, "plex_check_availability", start.ToolName)
	assert.Equal(t, `{"title":"Dune"}`, start.Arguments)
	result := events[2].(domain.ToolResultEvent)
	assert.JSONEq(t, `{"available":true}`, result.Result)
	assert.Equal(t, "Dune", gotTitle)

	msgs := env.messages(t, conv.ID)
	require.Len(t, msgs, 4)
	assert.Equal(t, []domain.Role{domain.RoleUser, domain.RoleAssistant, domain.RoleTool, domain.RoleAssistant},
		[]domain.Role{msgs[0].Role, msgs[1].Role, msgs[2].Role, msgs[3].Role})
	assert.Equal(t, "Checking.", msgs[1].Content)
	assert.JSONEq(t, `[{"id":"call_1","type":"function","function":{"name":"plex_check_availability","arguments":"{\"title\":\"Dune\"}"}}]`, msgs[1].ToolCalls)
	assert.Equal(t, "call_1", msgs[2].ToolCallID)
	assert.Equal(t, "plex_check_availability", msgs[2].ToolName)
	assert.Equal(t, events[4].(domain.DoneEvent).MessageID, msgs[3].ID)

	reqs := env.mock.Requests()
	require.Len(t, reqs, 2)
	require.Len(t, reqs[0].Tools, 1)
	second := reqs[1].Messages
	require.Len(t, second, 4)
	assert.Equal(t, domain.RoleAssistant, second[2].Role)
	assert.Equal(t, "call_1", second[2].ToolCalls[0].ID)
	assert.Equal(t, domain.RoleTool, second[3].Role)
	assert.Equal(t, "call_1", second[3].ToolCallID)

	// Rebuilding from storage reproduces what the model saw.
	assert.Equal(t, second[1:], BuildContext(msgs[:3]))
}

func TestStartTurnRunsCallsInIndexOrder(t *testing.T) {
	env := newTestEnv(t,
		llm.ToolRound(
			llm.ToolCallDelta{Index: 1, ID: "call_b", Name: "second"},
			llm.ToolCallDelta{Index: 0, ID: "call_a", Name: "first"},
			llm.ToolCallDelta{Index: 2, Name: "no_id"},
		),
		llm.TextRound("done"),
	)
	var order []string
	for _, name := range []string{"first", "second"} {
		env.registerTool(t, name, func(map[string]any) (any, error) {
			order = append(order, name)
			return "ok", nil
		})
	}
	conv := env.newConversation(t, env.user, "x")

	seq, err := env.svc.StartTurn(context.Background(), env.user, domain.TurnRequest{ConversationID: conv.ID, UserMessage: "go"})
	require.NoError(t, err)
	events := collect(seq)

	assert.Equal(t, []string{"first", "second"}, order)
	require.Len(t, events, 6)
	assert.Equal(t, "call_a", events[0].(domain.ToolCallStartEvent).ToolCallID)
	assert.Equal(t, "call_a", events[1].(domain.ToolResultEvent).ToolCallID)
	assert.Equal(t, "call_b", events[2].(domain.ToolCallStartEvent).ToolCallID)
}

func TestStartTurnToolErrorsReachTheModel(t *testing.T) {
	env := newTestEnv(t,
		llm.ToolRound(llm.ToolCallDelta{Index: 0, ID: "call_1", Name: "missing_tool", Arguments: "{}"}),
		llm.TextRound("Sorry."),
	)
	conv := env.newConversation(t, env.user, "x")

	seq, err := env.svc.StartTurn(context.Background(), env.user, domain.TurnRequest{ConversationID: conv.ID, UserMessage: "go"})
	require.NoError(t, err)
	events := collect(seq)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(events[1].(domain.ToolResultEvent).Result), &payload))
	assert.Equal(t, "unknown tool: missing_tool", payload["error"])
	assert.Equal(t, domain.EventTypeDone, events[len(events)-1].EventType())
}

func TestStartTurnToolCallLimit(t *testing.T) {
	var rounds []llm.MockRound
	for range MaxToolRounds + 1 {
		rounds = append(rounds, llm.ToolRound(llm.ToolCallDelta{Index: 0, ID: "call", Name: "noop"}))
	}
	env := newTestEnv(t, rounds...)
	env.registerTool(t, "noop", func(map[string]any) (any, error) { return nil, nil })
	conv := env.newConversation(t, env.user, "")

	seq, err := env.svc.StartTurn(context.Background(), env.user, domain.TurnRequest{ConversationID: conv.ID, UserMessage: "loop"})
	require.NoError(t, err)
	events := collect(seq)

	require.Len(t, events, 2*MaxToolRounds+1)
	last := events[len(events)-1]
	assert.Equal(t, domain.NewError("Tool call limit reached"), last)
	assert.Len(t, env.mock.Requests(), MaxToolRounds)
	assert.Len(t, env.messages(t, conv.ID), 1+2*MaxToolRounds)

	env.svc.Wait()
	assert.Empty(t, env.mock.CompleteRequests())
}

func TestStartTurnModelError(t *testing.T) {
	env := newTestEnv(t, llm.MockRound{
		Chunks: []llm.StreamChunk{{Content: "partial"}},
		Err:    errors.New("upstream returned 502"),
	})
	conv := env.newConversation(t, env.user, "")

	seq, err := env.svc.StartTurn(context.Background(), env.user, domain.TurnRequest{ConversationID: conv.ID, UserMessage: "hi"})
	require.NoError(t, err)
	events := collect(seq)

	require.Equal(t, []domain.EventType{domain.EventTypeTextDelta, domain.EventTypeError}, eventTypes(events))
	assert.Equal(t, "upstream returned 502", events[1].(domain.ErrorEvent).Message)
	msgs := env.messages(t, conv.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Len(t, env.mock.Requests(), 1)
}

func TestStartTurnCancelledMidStream(t *testing.T) {
	env := newTestEnv(t, llm.MockRound{Chunks: []llm.StreamChunk{{Content: "Let me"}}, Block: true})
	conv := env.newConversation(t, env.user, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seq, err := env.svc.StartTurn(ctx, env.user, domain.TurnRequest{ConversationID: conv.ID, UserMessage: "hi"})
	require.NoError(t, err)

	var events []domain.Event
	for ev := range seq {
		events = append(events, ev)
		cancel()
	}

	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeTextDelta, events[0].EventType())
	msgs := env.messages(t, conv.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
}

func TestStartTurnConsumerStops(t *testing.T) {
	env := newTestEnv(t, llm.TextRound("one", "two", "three"))
	conv := env.newConversation(t, env.user, "")

	seq, err := env.svc.StartTurn(context.Background(), env.user, domain.TurnRequest{ConversationID: conv.ID, UserMessage: "hi"})
	require.NoError(t, err)
	for range seq {
		break
	}
	env.svc.Wait()

	assert.Len(t, env.messages(t, conv.ID), 1)
	assert.Empty(t, env.mock.CompleteRequests())
}

func TestStartTurnConsumerStopsDuringTools(t *testing.T) {
	env := newTestEnv(t, llm.ToolRound(
		llm.ToolCallDelta{Index: 0, ID: "call_1", Name: "noop"},
		llm.ToolCallDelta{Index: 1, ID: "call_2", Name: "noop"},
	))
	ran := 0
	env.registerTool(t, "noop", func(map[string]any) (any, error) {
		ran++
		return "ok", nil
	})
	conv := env.newConversation(t, env.user, "")

	seq, err := env.svc.StartTurn(context.Background(), env.user, domain.TurnRequest{ConversationID: conv.ID, UserMessage: "hi"})
	require.NoError(t, err)
	for ev := range seq {
		if ev.EventType() == domain.EventTypeToolResult {
			break
		}
	}

	assert.Equal(t, 1, ran)
	msgs := env.messages(t, conv.ID)
	require.Len(t, msgs, 4)
	assert.Equal(t, "call_2", msgs[3].ToolCallID)
	assert.JSONEq(t, `{"error":"cancelled"}`, msgs[3].Content)
}

func TestStartTurnCancelledDuringTool(t *testing.T) {
	env := newTestEnv(t, llm.ToolRound(
		llm.ToolCallDelta{Index: 0, ID: "call_1", Name: "overseerr_request_movie", Arguments: `{"tmdbId":438631}`},
		llm.ToolCallDelta{Index: 1, ID: "call_2", Name: "overseerr_request_movie", Arguments: `{"tmdbId":693134}`},
	))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ran := 0
	env.registerTool(t, "overseerr_request_movie", func(map[string]any) (any, error) {
		ran++
		cancel()
		return map[string]any{"success": true}, nil
	})
	conv := env.newConversation(t, env.user, "")

	seq, err := env.svc.StartTurn(ctx, env.user, domain.TurnRequest{ConversationID: conv.ID, UserMessage: "request dune"})
	require.NoError(t, err)
	events := collect(seq)

	assert.Equal(t, 1, ran)
	assert.Equal(t, []domain.EventType{domain.EventTypeToolCallStart}, eventTypes(events))

	msgs := env.messages(t, conv.ID)
	require.Len(t, msgs, 4)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	assert.Equal(t, domain.RoleTool, msgs[2].Role)
	assert.Equal(t, "call_1", msgs[2].ToolCallID)
	assert.JSONEq(t, `{"success":true}`, msgs[2].Content)
	assert.Equal(t, domain.RoleTool, msgs[3].Role)
	assert.Equal(t, "call_2", msgs[3].ToolCallID)
	assert.JSONEq(t, `{"error":"cancelled"}`, msgs[3].Content)

	replay := BuildContext(msgs)
	require.Len(t, replay, 4)
	assert.Len(t, replay[1].ToolCalls, 2)
}

func TestStartTurnValidation(t *testing.T) {
	env := newTestEnv(t)
	conv := env.newConversation(t, env.user, "")
	other := &domain.User{ID: "u2"}
	ctx := context.Background()

	_, err := env.svc.StartTurn(ctx, env.user, domain.TurnRequest{ConversationID: conv.ID, UserMessage: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = env.svc.StartTurn(ctx, other, domain.TurnRequest{ConversationID: conv.ID, UserMessage: "hi"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.svc.StartTurn(ctx, env.admin, domain.TurnRequest{ConversationID: conv.ID, UserMessage: "hi"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.svc.StartTurn(ctx, nil, domain.TurnRequest{ConversationID: conv.ID, UserMessage: "hi"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	env.catalog.err = errors.New("settings unavailable")
	_, err = env.svc.StartTurn(ctx, env.user, domain.TurnRequest{ConversationID: conv.ID, UserMessage: "hi"})
	assert.ErrorContains(t, err, "settings unavailable")

	assert.Empty(t, env.messages(t, conv.ID))
}

func TestStartTurnWithoutEndpoint(t *testing.T) {
	env := newTestEnvWithEndpoints(t, staticEndpoints{})
	conv := env.newConversation(t, env.user, "")

	_, err := env.svc.StartTurn(context.Background(), env.user, domain.TurnRequest{ConversationID: conv.ID, UserMessage: "hi"})
	assert.ErrorIs(t, err, domain.ErrLLMNotConfigured)
	assert.Empty(t, env.messages(t, conv.ID))
}

func TestStartTurnModelSelector(t *testing.T) {
	env := newTestEnvWithEndpoints(t, staticEndpoints{
		{ID: "local", BaseURL: "http://a", Model: "llama3", Enabled: true},
		{ID: "cloud", BaseURL: "http://b", Model: "gpt-4o", Enabled: true},
		{ID: "old", BaseURL: "http://c", Model: "mistral", Enabled: false},
	}, llm.TextRound("a"), llm.TextRound("b"), llm.TextRound("c"))
	conv := env.newConversation(t, env.user, "x")
	ctx := context.Background()

	for _, selector := range []string{"cloud:gpt-4o-mini", "llama3:8b", "old:mistral"} {
		seq, err := env.svc.StartTurn(ctx, env.user, domain.TurnRequest{ConversationID: conv.ID, UserMessage: "hi", ModelSelector: selector})
		require.NoError(t, err)
		collect(seq)
	}

	reqs := env.mock.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "gpt-4o-mini", reqs[0].Model)
	assert.Equal(t, "llama3:8b", reqs[1].Model)
	assert.Equal(t, "llama3", reqs[2].Model)
}
