// Package tools holds the catalog of actions the model can call.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/xiaot623/thinkarr/internal/domain"
	"github.com/xiaot623/thinkarr/internal/infra/tracer"
)

// Handler runs a tool. args has already passed schema validation.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Tool is one registry entry.
type Tool struct {
	Name        string
	Description string
	Schema      json.RawMessage
	Handler     Handler
}

type registered struct {
	tool      Tool
	validator *jsonschema.Schema
}

// Registry stores tools keyed by name, in registration order.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]*registered
	order   []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRegistry creates an empty registry. A positive timeout bounds every Execute.
func NewRegistry(timeout time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:   make(map[string]*registered),
		timeout: timeout,
		logger:  logger,
	}
}

// Define builds a Tool whose schema is reflected from A and whose handler
// receives the decoded arguments.
func Define[A any](name, description string, fn func(ctx context.Context, args A) (any, error)) Tool {
	return Tool{
		Name:        name,
		Description: description,
		Schema:      SchemaFor[A](),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args A
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}
			return fn(ctx, args)
		},
	}
}

// Register adds a tool. Names are unique: a second registration of the same
// name fails with domain.ErrToolAlreadyRegistered and keeps the first.
func (r *Registry) Register(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if tool.Handler == nil {
		return fmt.Errorf("handler is required for %s", tool.Name)
	}
	schema, err := normalizeSchema(tool.Schema)
	if err != nil {
		return fmt.Errorf("invalid schema for %s: %w", tool.Name, err)
	}
	validator, err := compileSchema(tool.Name, schema)
	if err != nil {
		return err
	}
	tool.Schema = schema

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", domain.ErrToolAlreadyRegistered, tool.Name)
	}
	r.tools[tool.Name] = &registered{tool: tool, validator: validator}
	r.order = append(r.order, tool.Name)
	return nil
}

// HasAny reports whether at least one tool is registered.
func (r *Registry) HasAny() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order) > 0
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Names lists tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// ListSchemas exports every tool in function-calling shape.
func (r *Registry) ListSchemas() []domain.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name].tool
		out = append(out, domain.ToolSchema{
			Type: "function",
			Function: domain.ToolSchemaFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  append(json.RawMessage(nil), t.Schema...),
			},
		})
	}
	return out
}

// Execute runs a tool and returns its result as JSON text. It never fails:
// unknown tools, bad arguments and handler errors come back as {"error": "..."}.
// Empty argument text counts as {}.
func (r *Registry) Execute(ctx context.Context, name, argsJSON string) string {
	ctx, span := tracer.StartSpan(ctx, "tool.execute", tracer.StringAttr("tool.name", name))
	defer span.End()

	fail := func(err error) string {
		tracer.RecordError(span, err)
		r.logger.Warn("tool execution failed", "tool", name, "error", err)
		return errorPayload(err.Error())
	}

	r.mu.RLock()
	entry := r.tools[name]
	r.mu.RUnlock()
	if entry == nil {
		return fail(fmt.Errorf("%w: %s", domain.ErrToolNotFound, name))
	}

	raw := strings.TrimSpace(argsJSON)
	if raw == "" {
		raw = "{}"
	}
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return fail(fmt.Errorf("invalid arguments JSON: %v", err))
	}
	if err := entry.validator.Validate(decoded); err != nil {
		return fail(fmt.Errorf("invalid arguments: %v", err))
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	out, err := invoke(ctx, entry.tool, json.RawMessage(raw))
	if err != nil {
		return fail(err)
	}
	result, err := encodeResult(out)
	if err != nil {
		return fail(fmt.Errorf("failed to encode result: %w", err))
	}
	tracer.SetOK(span)
	return result
}

func invoke(ctx context.Context, tool Tool, args json.RawMessage) (out any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name, p)
		}
	}()
	return tool.Handler(ctx, args)
}

func encodeResult(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "null", nil
	case json.RawMessage:
		if !json.Valid(val) {
			return "", fmt.Errorf("handler returned invalid JSON")
		}
		return string(val), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func errorPayload(msg string) string {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return string(data)
}
