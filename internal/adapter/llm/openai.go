package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/xiaot623/thinkarr/internal/domain"
	"github.com/xiaot623/thinkarr/internal/infra/tracer"
)

// OpenAIOptions configures an OpenAIClient.
type OpenAIOptions struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OpenAIClient is a Client for any OpenAI-compatible endpoint.
type OpenAIClient struct {
	client  openai.Client
	timeout time.Duration
}

// NewOpenAIClient creates a client. The SDK's own retries are disabled; a
// failed model call surfaces to the caller as-is.
//
// Timeout bounds the wait for response headers on streams and the whole
// call for non-streaming requests. A stream that has started is bounded
// only by its context.
func NewOpenAIClient(opts OpenAIOptions) *OpenAIClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = opts.Timeout
		httpClient = &http.Client{Transport: transport}
	}
	apiKey := opts.APIKey
	if apiKey == "" {
		// Local servers accept any key but the SDK insists on one.
		apiKey = "not-needed"
	}
	return &OpenAIClient{
		timeout: opts.Timeout,
		client: openai.NewClient(
			option.WithBaseURL(opts.BaseURL),
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0),
			option.WithHTTPClient(httpClient),
		),
	}
}

func (c *OpenAIClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// StreamChat streams a chat completion, forwarding text and tool-call deltas.
func (c *OpenAIClient) StreamChat(ctx context.Context, req *ChatRequest, callback StreamCallback) error {
	ctx, span := tracer.StartSpan(ctx, "llm.stream_chat",
		tracer.StringAttr("llm.model", req.Model),
		tracer.IntAttr("llm.messages", len(req.Messages)),
		tracer.IntAttr("llm.tools", len(req.Tools)))
	defer span.End()

	params, err := buildParams(req)
	if err != nil {
		tracer.RecordError(span, err)
		return err
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		out := StreamChunk{Content: delta.Content}
		for _, tc := range delta.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, ToolCallDelta{
				Index:     int(tc.Index),
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		if out.Content == "" && len(out.ToolCalls) == 0 {
			continue
		}
		if err := callback(out); err != nil {
			tracer.RecordError(span, err)
			return err
		}
	}
	if err := stream.Err(); err != nil {
		tracer.RecordError(span, err)
		return fmt.Errorf("chat stream failed: %w", err)
	}
	tracer.SetOK(span)
	return nil
}

// Complete sends a non-streaming chat completion.
func (c *OpenAIClient) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	ctx, span := tracer.StartSpan(ctx, "llm.complete", tracer.StringAttr("llm.model", req.Model))
	defer span.End()

	params, err := buildParams(req)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		err := fmt.Errorf("chat completion returned no choices")
		tracer.RecordError(span, err)
		return nil, err
	}
	tracer.SetOK(span)
	return &ChatResponse{Content: resp.Choices[0].Message.Content}, nil
}

// ListModels lists the endpoint's models.
func (c *OpenAIClient) ListModels(ctx context.Context) ([]Model, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	models := make([]Model, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, Model{ID: m.ID, OwnedBy: m.OwnedBy})
	}
	return models, nil
}

func buildParams(req *ChatRequest) (openai.ChatCompletionNewParams, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: convertMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		tools, err := convertTools(req.Tools)
		if err != nil {
			return params, err
		}
		params.Tools = tools
	}
	return params, nil
}

func convertMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case domain.RoleAssistant:
			out = append(out, assistantMessage(msg))
		case domain.RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func assistantMessage(msg Message) openai.ChatCompletionMessageParamUnion {
	asst := openai.ChatCompletionAssistantMessageParam{}
	if msg.Content != "" {
		asst.Content.OfString = openai.String(msg.Content)
	}
	for _, call := range msg.ToolCalls {
		asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: call.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      call.Function.Name,
					Arguments: call.Function.Arguments,
				},
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}
}

func convertTools(schemas []domain.ToolSchema) ([]openai.ChatCompletionToolUnionParam, error) {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(schemas))
	for _, s := range schemas {
		params := openai.FunctionParameters{}
		if len(s.Function.Parameters) > 0 {
			if err := json.Unmarshal(s.Function.Parameters, &params); err != nil {
				return nil, fmt.Errorf("invalid parameters for tool %s: %w", s.Function.Name, err)
			}
		}
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        s.Function.Name,
			Description: openai.String(s.Function.Description),
			Parameters:  params,
		}))
	}
	return out, nil
}
